// Package beacon advertises the server on the local network and lets
// clients find it. The server broadcasts a fixed magic payload over UDP
// at a fixed interval; a client waits for the first matching datagram
// and takes its sender as the server host.
package beacon

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// DefaultMagic is the payload clients match against.
const DefaultMagic = "IAMHERE!"

// discoverPoll bounds each read in Discover so cancellation is noticed.
const discoverPoll = 10 * time.Millisecond

// Beacon periodically sends magic to target over conn.
type Beacon struct {
	conn     net.PacketConn
	target   net.Addr
	magic    []byte
	interval time.Duration
	logger   *slog.Logger

	sent   atomic.Uint64
	failed atomic.Uint64
	done   chan struct{}
}

// New creates a Beacon. conn is owned by the caller.
func New(conn net.PacketConn, target net.Addr, magic []byte, interval time.Duration, logger *slog.Logger) *Beacon {
	return &Beacon{
		conn:     conn,
		target:   target,
		magic:    magic,
		interval: interval,
		logger:   logger.With(slog.String("component", "beacon"), slog.String("target", target.String())),
		done:     make(chan struct{}),
	}
}

// Start launches a background goroutine that sends one datagram
// immediately and then one per interval. It stops when ctx is cancelled.
func (b *Beacon) Start(ctx context.Context) {
	go func() {
		defer close(b.done)

		b.send()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.send()
			}
		}
	}()
}

// Done is closed once the goroutine launched by Start has returned.
func (b *Beacon) Done() <-chan struct{} {
	return b.done
}

// Sent returns the number of datagrams written successfully.
func (b *Beacon) Sent() uint64 {
	return b.sent.Load()
}

// Failed returns the number of sends that returned an error.
func (b *Beacon) Failed() uint64 {
	return b.failed.Load()
}

// send is fire-and-forget: a failure is logged and the next tick retries.
func (b *Beacon) send() {
	_ = b.conn.SetWriteDeadline(time.Now().Add(b.interval))
	if _, err := b.conn.WriteTo(b.magic, b.target); err != nil {
		b.failed.Add(1)
		b.logger.Warn("beacon send failed", slog.String("error", err.Error()))
		return
	}
	b.sent.Add(1)
	b.logger.Debug("beacon sent")
}

// Listen opens a UDP socket on addr with broadcast enabled, suitable both
// for sending beacons and for receiving them.
func Listen(ctx context.Context, addr string) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: control}
	return lc.ListenPacket(ctx, "udp4", addr)
}

// Discover reads from conn until a datagram equal to magic arrives and
// returns its sender. Other payloads are ignored. It returns ctx.Err()
// once ctx is done.
func Discover(ctx context.Context, conn net.PacketConn, magic []byte) (net.Addr, error) {
	buf := make([]byte, len(magic)+64)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := conn.SetReadDeadline(time.Now().Add(discoverPoll)); err != nil {
			return nil, err
		}
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return nil, err
		}
		if bytes.Equal(buf[:n], magic) {
			return addr, nil
		}
	}
}
