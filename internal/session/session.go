// Package session tracks connected clients. A Session is one live
// connection; the Registry owns every Session's lifetime.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session represents one connected client.
type Session struct {
	ID          string
	Conn        net.Conn
	RemoteAddr  string
	ConnectedAt time.Time

	handle    Handle
	closeOnce sync.Once
	closeErr  error
}

// New wraps an accepted connection in a Session with a fresh id.
func New(conn net.Conn) *Session {
	return &Session{
		ID:          uuid.New().String(),
		Conn:        conn,
		RemoteAddr:  conn.RemoteAddr().String(),
		ConnectedAt: time.Now(),
	}
}

// Handle returns the registry handle assigned by Registry.Add.
func (s *Session) Handle() Handle {
	return s.handle
}

// Close closes the underlying connection. Only the first call has any effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Conn.Close()
	})
	return s.closeErr
}
