// Package client is a minimal line-protocol client: one command out, one
// response back.
package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrClosed is returned by Send after the server has closed the connection.
var ErrClosed = errors.New("connection closed by server")

// Client is a connection to a trading server. It is not safe for
// concurrent use.
type Client struct {
	conn    net.Conn
	timeout time.Duration
	buf     []byte
}

// Dial connects to addr. timeout bounds every Send round trip; zero means
// no deadline.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, timeout: timeout, buf: make([]byte, 4096)}, nil
}

// settle is how long Send waits for more bytes after the last read before
// treating the reply as complete. The server writes each reply in one
// call, but TCP may deliver it in several segments.
const settle = 20 * time.Millisecond

// Send writes cmd and returns the server's reply.
func (c *Client) Send(cmd string) (string, error) {
	// Also clears the settle deadline left by the previous reply.
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return "", err
	}

	n, err := c.conn.Read(c.buf)
	if n == 0 && err != nil {
		if errors.Is(err, net.ErrClosed) || isEOF(err) {
			return "", ErrClosed
		}
		return "", err
	}
	reply := append([]byte(nil), c.buf[:n]...)

	// Drain the rest of a multi-segment reply. A timeout, EOF or reset
	// here just ends the reply.
	for err == nil {
		if err = c.conn.SetReadDeadline(time.Now().Add(settle)); err != nil {
			break
		}
		n, err = c.conn.Read(c.buf)
		reply = append(reply, c.buf[:n]...)
	}
	return string(reply), nil
}

// LocalAddr returns the client side of the connection.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.ECONNRESET)
}

// StatusCode returns the numeric code at the start of a reply, or 0 if
// the reply does not start with one.
func StatusCode(reply string) int {
	code, _, _ := strings.Cut(reply, " ")
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}
