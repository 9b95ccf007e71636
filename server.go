package pastewire

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Server accepts TCP connections and runs a Handler on a Session for each of them.
type Server struct {
	listener        *net.TCPListener
	logger          Logger
	shutdownTimeout time.Duration
	sessionOpts     []Option
	onOpen          func(*Session)
	onClose         func(*Session, error)

	mu          sync.Mutex
	shutdown    bool
	sessions    map[*Session]struct{}
	shutdownNow chan struct{} // signals immediate shutdown, bypassing timeout
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerShutdownTimeoutOption sets the graceful shutdown timeout.
// When the context is canceled, the server waits up to this duration
// before closing the listener and live sessions. Default is 0 (immediate shutdown).
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// ServerSessionOptions sets the options applied to every accepted session.
func ServerSessionOptions(opts ...Option) ServerOption {
	return func(s *Server) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// ServerOnSessionOpen registers a callback invoked before a session starts receiving.
func ServerOnSessionOpen(fn func(*Session)) ServerOption {
	return func(s *Server) {
		s.onOpen = fn
	}
}

// ServerOnSessionClose registers a callback invoked after a session's receive loop returns.
func ServerOnSessionClose(fn func(*Session, error)) ServerOption {
	return func(s *Server) {
		s.onClose = fn
	}
}

// NewServer creates a server bound to addr, for example ":9998".
// Returns an error if the address cannot be resolved or bound.
func NewServer(addr string, opts ...ServerOption) (*Server, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "pastewire: resolve %q", addr)
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s := &Server{
		listener:    listener,
		logger:      slog.Default(),
		sessions:    make(map[*Session]struct{}),
		shutdownNow: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Serve accepts connections and runs h on a session for each one.
// It blocks until the context is canceled, Close is called, or accepting fails.
// Live sessions are closed and awaited before Serve returns.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	if h == nil {
		return ErrInvalidHandler
	}

	s.logger.Info("server started", "addr", s.listener.Addr())

	// Sessions outlive ctx until the shutdown timeout has passed.
	sessCtx, cancelSessions := context.WithCancel(context.WithoutCancel(ctx))
	stopped := make(chan struct{})
	defer close(stopped)

	var group errgroup.Group
	defer func() {
		_ = s.listener.Close()
		cancelSessions()
		s.closeSessions()
		_ = group.Wait()
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}

		// Wait for shutdown timeout if configured, but allow early exit via Close()
		if s.shutdownTimeout > 0 {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			select {
			case <-time.After(s.shutdownTimeout):
			case <-s.shutdownNow:
				s.logger.Debug("shutdown timeout bypassed via Close()")
			case <-stopped:
				return
			}
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept
		_ = s.listener.SetDeadline(time.Now())
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if s.isShutdown() {
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				return ctx.Err()
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return errors.WithStack(err)
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())

		sess, err := NewSession(conn, s.sessionOpts...)
		if err != nil {
			conn.Close()
			continue
		}
		if !s.track(sess) {
			sess.Close()
			continue
		}

		group.Go(func() error {
			s.serveSession(sessCtx, sess, h)
			return nil
		})
	}
}

func (s *Server) serveSession(ctx context.Context, sess *Session, h Handler) {
	defer s.untrack(sess)

	if s.onOpen != nil {
		s.onOpen(sess)
	}

	err := sess.Run(ctx, h)

	if s.onClose != nil {
		s.onClose(sess, err)
	}
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) track(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.sessions[sess] = struct{}{}
	return true
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.Close()
	}
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the server by closing the underlying listener.
// If a shutdown timeout is configured, Close() bypasses the remaining timeout.
// Serve then closes live sessions and returns.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	// Signal to bypass any pending shutdown timeout
	select {
	case s.shutdownNow <- struct{}{}:
	default:
	}

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
