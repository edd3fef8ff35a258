// Package server runs the trading protocol over TCP. A Server owns the
// listener, the session registry and the discovery beacon; it is
// created once, run once, and stopped either by its context or by a
// client's shutdown command.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/efreitasn/tradeserver/internal/beacon"
	"github.com/efreitasn/tradeserver/internal/protocol"
	"github.com/efreitasn/tradeserver/internal/session"
)

// Config holds the listener settings.
type Config struct {
	Addr           string
	ReadBufferSize int
}

// Server is the server context object.
type Server struct {
	cfg      Config
	engine   *protocol.Engine
	registry *session.Registry
	beacon   *beacon.Beacon // nil disables discovery
	logger   *slog.Logger

	ln           net.Listener
	wg           sync.WaitGroup
	quit         chan struct{}
	shutdownOnce sync.Once
}

// New creates a new Server. beacon may be nil.
func New(
	cfg Config,
	engine *protocol.Engine,
	registry *session.Registry,
	beacon *beacon.Beacon,
	logger *slog.Logger,
) *Server {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 1024
	}
	return &Server{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		beacon:   beacon,
		logger:   logger,
		quit:     make(chan struct{}),
	}
}

// Listen binds the TCP listener. Run calls it if it has not been called.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown asks Run to stop. It is safe to call more than once and from
// any goroutine.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.quit)
	})
}

// Done is closed once shutdown has been requested.
func (s *Server) Done() <-chan struct{} {
	return s.quit
}

// Run accepts clients until ctx is cancelled or Shutdown is called. It
// then stops every session from reading another command, lets commands
// already in flight write their response, and waits for the session
// goroutines and the beacon to finish.
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.beacon != nil {
		s.beacon.Start(ctx)
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-s.quit:
		}
		s.ln.Close()
	}()

	s.logger.Info("server listening", slog.String("addr", s.ln.Addr().String()))
	runErr := s.acceptLoop(ctx)

	cancel()
	s.registry.ForEach(s.interrupt)
	s.wg.Wait()
	if s.beacon != nil {
		<-s.beacon.Done()
	}
	s.logger.Info("server stopped")
	return runErr
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.stopping(ctx) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("accept failed", slog.String("error", err.Error()))
				continue
			}
			s.logger.Error("listener failed", slog.String("error", err.Error()))
			return err
		}

		// Register before spawning so a concurrent shutdown sees every
		// session it has to release.
		sess := session.New(conn)
		s.registry.Add(sess)
		s.wg.Add(1)
		go s.serve(context.WithoutCancel(ctx), sess)
	}
}

func (s *Server) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// interrupt wakes a session blocked in Read so its goroutine exits. A
// command already read still runs and writes its response first.
func (s *Server) interrupt(sess *session.Session) {
	if err := sess.Conn.SetReadDeadline(time.Now()); err != nil {
		s.release(sess)
	}
}

// serve handles one session: each read is one command, answered with
// exactly one response. ctx is not cancelled by shutdown, so a command
// that has started always completes.
func (s *Server) serve(ctx context.Context, sess *session.Session) {
	log := s.logger.With(
		slog.String("session_id", sess.ID),
		slog.String("remote_addr", sess.RemoteAddr),
	)

	defer s.wg.Done()
	defer s.release(sess)
	defer func() {
		if r := recover(); r != nil {
			log.Error("session aborted by panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	log.Info("session opened", slog.Int("sessions", s.registry.Len()))

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := sess.Conn.Read(buf)
		if n > 0 {
			line, dropped := protocol.Frame(buf[:n])
			if dropped {
				log.Warn("extra lines after command dropped")
			}

			resp := s.engine.Handle(ctx, line, log)
			if _, werr := sess.Conn.Write(resp.Bytes()); werr != nil {
				log.Warn("write failed", slog.String("error", werr.Error()))
				return
			}
			if resp.CloseSession {
				log.Info("session quit")
				return
			}
			if resp.Shutdown {
				log.Info("shutdown requested by client")
				s.Shutdown()
				return
			}
		}
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Debug("session interrupted by shutdown")
			default:
				log.Warn("read failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// release removes sess from the registry and closes it. Only the caller
// that wins the removal closes the connection.
func (s *Server) release(sess *session.Session) {
	if !s.registry.Remove(sess.Handle()) {
		return
	}
	if err := sess.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("session close failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Info("session closed",
		slog.String("session_id", sess.ID),
		slog.Int("sessions", s.registry.Len()),
	)
}
