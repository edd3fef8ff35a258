// Package protocol implements the line-oriented trading protocol: framing,
// command dispatch, and status-coded responses.
package protocol

import (
	"strconv"
	"strings"
)

// Status is a response status code.
type Status int

const (
	StatusOK                  Status = 200
	StatusInvalidCommand      Status = 400
	StatusUserNotFound        Status = 401
	StatusInsufficientBalance Status = 402
	StatusFormatError         Status = 403
	StatusInsufficientStock   Status = 404
	StatusServerError         Status = 500
)

var statusText = map[Status]string{
	StatusOK:                  "OK",
	StatusInvalidCommand:      "Invalid Command",
	StatusUserNotFound:        "User Does Not Exist",
	StatusInsufficientBalance: "Insufficient Balance",
	StatusFormatError:         "Message Format Error",
	StatusInsufficientStock:   "Insufficient Stock Balance",
	StatusServerError:         "Internal Server Error",
}

// Text returns the fixed human-readable suffix for s.
func (s Status) Text() string {
	return statusText[s]
}

// String returns the status line without its terminator, e.g. "200 OK".
func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Text()
}

// Response is the reply to one command.
type Response struct {
	Status Status
	Body   []string

	// CloseSession asks the caller to release the session after the
	// response has been written.
	CloseSession bool
	// Shutdown asks the caller to stop the server after the response has
	// been written.
	Shutdown bool
}

// Bytes renders the response as "<code> <text>\n" followed by one
// "\n"-terminated line per body entry.
func (r Response) Bytes() []byte {
	var b strings.Builder
	b.WriteString(r.Status.String())
	b.WriteByte('\n')
	for _, line := range r.Body {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func reply(s Status, body ...string) Response {
	return Response{Status: s, Body: body}
}
