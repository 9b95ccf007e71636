// Package pastewire implements a length-prefixed message framing protocol over a single
// TCP connection. Each frame carries a 1-byte type and a 4-byte big-endian length followed
// by the payload. A Session reads frames on one goroutine while any number of goroutines
// send frames through a serialized write path.
package pastewire

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// maxRetainedWriteBuffer caps the encode buffer kept between sends.
const maxRetainedWriteBuffer = 64 * 1024

// Session is one framed connection to a peer.
// Once closed it is never reopened; dial again for a new session.
type Session struct {
	conn   net.Conn
	reader *Reader
	logger Logger

	opts options

	writeMu sync.Mutex
	wbuf    []byte

	state   atomic.Int32
	running atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
	errMu     sync.Mutex
	err       error
}

func newSession(opts options) *Session {
	return &Session{
		logger: opts.logger,
		opts:   opts,
		done:   make(chan struct{}),
	}
}

// Dial connects to address over TCP and returns an open session.
// A handshake failure, including a refused connection, is an *OpError of kind ErrConnectFailed.
func Dial(ctx context.Context, address string, opt ...Option) (*Session, error) {
	s := newSession(newOptions(opt))
	s.state.Store(int32(StateConnecting))

	if s.opts.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.connectTimeout)
		defer cancel()
	}

	conn, err := s.opts.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		s.state.Store(int32(StateClosed))
		close(s.done)
		s.logger.Debug("dial failed", "addr", address, "error", err)
		return nil, newOpError("dial", address, ErrConnectFailed, err)
	}

	s.attach(conn)
	s.logger.Info("session connected", "addr", s.RemoteAddr())
	return s, nil
}

// NewSession wraps an established connection in an open session.
func NewSession(conn net.Conn, opt ...Option) (*Session, error) {
	if conn == nil {
		return nil, errors.New("pastewire: nil connection")
	}
	s := newSession(newOptions(opt))
	s.attach(conn)
	return s, nil
}

func (s *Session) attach(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	s.conn = conn
	s.reader = NewReader(conn,
		WithMaxFrameSize(s.opts.maxFrameSize),
		WithReadBufferSize(s.opts.readBufferSize))
	s.state.Store(int32(StateOpen))
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done returns a channel that is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that closed the session, or nil if it is open
// or was closed explicitly or by a clean end of stream.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// RemoteAddr returns the remote network address.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// LocalAddr returns the local network address.
func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Send writes one frame. Concurrent callers are serialized so the bytes of two frames
// never interleave; frames from a single caller arrive in call order.
//
// A write failure closes the session and returns an *OpError of kind ErrSendFailed.
func (s *Session) Send(t MessageType, payload []byte) error {
	if s.State() == StateClosed {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.State() == StateClosed {
		return ErrSessionClosed
	}

	buf, err := AppendFrame(s.wbuf[:0], t, payload)
	if err != nil {
		return err
	}
	if cap(buf) <= maxRetainedWriteBuffer {
		s.wbuf = buf
	}

	if s.opts.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.writeTimeout))
	}

	if _, err = s.conn.Write(buf); err != nil {
		if s.State() == StateClosed {
			// Closed by another goroutine while the write was blocked.
			return ErrSessionClosed
		}
		s.logger.Debug("write error", "addr", s.RemoteAddr(), "error", err)
		opErr := newOpError("send", s.RemoteAddr().String(), ErrSendFailed, err)
		s.closeWithError(opErr)
		return opErr
	}

	s.logger.Debug("frame sent", "addr", s.RemoteAddr(), "type", t, "length", len(payload))
	return nil
}

// SendText sends text as the UTF-8 payload of a frame.
func (s *Session) SendText(t MessageType, text string) error {
	return s.Send(t, []byte(text))
}

// Run receives frames and passes each to h until the peer closes the stream, an
// unrecoverable error occurs, the session is closed, or ctx is canceled.
// The session is closed when Run returns and is never restarted.
//
// The ctx passed to h is canceled as soon as the session closes, whichever goroutine closes it.
//
// Run returns nil when the peer closes cleanly on a frame boundary or the session is closed
// explicitly, ctx.Err() when ctx is canceled, and the failure otherwise (for example an error
// matching ErrTruncatedFrame).
func (s *Session) Run(ctx context.Context, h Handler) error {
	if h == nil {
		return ErrInvalidHandler
	}
	if s.State() == StateClosed {
		return ErrSessionClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.logger.Info("session opened", "addr", s.RemoteAddr())
	s.logger.Debug("session options", "addr", s.RemoteAddr(),
		"read_timeout", s.opts.readTimeout,
		"write_timeout", s.opts.writeTimeout,
		"max_frame_size", s.opts.maxFrameSize,
		"read_buffer_size", s.opts.readBufferSize)

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		err := s.receiveLoop(child, h)
		s.closeWithError(err)
		return err
	})

	// Closing the connection is what unblocks a read in progress.
	group.Go(func() error {
		select {
		case <-child.Done():
		case <-s.done:
		}
		s.closeWithError(nil)
		// Release a handler waiting on its context.
		cancel()
		return nil
	})

	err := group.Wait()
	if err == nil {
		// A failed send on another goroutine also ends the loop.
		err = s.Err()
	}
	if err == nil && parent.Err() != nil {
		err = parent.Err()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Info("session closed with error", "addr", s.RemoteAddr(), "error", err)
	} else {
		s.logger.Info("session closed", "addr", s.RemoteAddr())
	}

	return err
}

// receiveLoop reads frames and dispatches them to the handler.
func (s *Session) receiveLoop(ctx context.Context, h Handler) error {
	for {
		if s.opts.readTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.readTimeout))
		}

		f, err := s.reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("peer closed stream", "addr", s.RemoteAddr())
				return nil
			}
			if s.State() == StateClosed {
				// Closed locally while blocked in the read.
				return nil
			}
			s.logger.Debug("read error", "addr", s.RemoteAddr(), "error", err)
			return err
		}

		s.logger.Debug("frame received", "addr", s.RemoteAddr(), "type", f.Type, "length", f.Length())

		if err = h.HandleFrame(ctx, s, f); err != nil {
			if s.State() == StateClosed {
				return nil
			}
			if s.opts.onError(err) == Disconnect {
				return err
			}
			s.logger.Warn("handler error", "addr", s.RemoteAddr(), "type", f.Type, "error", err)
		}
	}
}

// Close closes the session and releases the socket.
// Blocked reads and writes on other goroutines fail promptly.
// Safe to call multiple times and from any goroutine.
func (s *Session) Close() error {
	return s.closeWithError(nil)
}

// closeWithError closes the session once, recording cause as the reason.
func (s *Session) closeWithError(cause error) error {
	var err error
	s.closeOnce.Do(func() {
		s.errMu.Lock()
		s.err = cause
		s.errMu.Unlock()

		s.state.Store(int32(StateClosed))
		if s.conn != nil {
			err = s.conn.Close()
		}
		close(s.done)
	})
	return err
}
