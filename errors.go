package pastewire

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// Framing errors.
var (
	// ErrPayloadTooLarge is returned when a payload does not fit the 32-bit length field.
	ErrPayloadTooLarge = errors.New("pastewire: payload too large")
	// ErrShortHeader is returned when fewer than HeaderSize bytes are supplied to DecodeHeader.
	ErrShortHeader = errors.New("pastewire: short header")
	// ErrIncompleteFrame is returned by Decode when the header is present but the payload is not.
	ErrIncompleteFrame = errors.New("pastewire: incomplete frame")
)

// Stream errors.
var (
	// ErrTruncatedFrame is returned when the peer closes the stream inside a frame.
	ErrTruncatedFrame = errors.New("pastewire: truncated frame")
	// ErrFrameTooLarge is returned when a header announces more than the configured maximum.
	ErrFrameTooLarge = errors.New("pastewire: frame exceeds maximum size")
)

// Session errors.
var (
	// ErrConnectFailed is the kind of error returned when the TCP handshake does not complete.
	ErrConnectFailed = errors.New("pastewire: connect failed")
	// ErrSendFailed is the kind of error returned when writing a frame fails.
	ErrSendFailed = errors.New("pastewire: send failed")
	// ErrSessionClosed is returned when operating on a closed session.
	ErrSessionClosed = errors.New("pastewire: session closed")
	// ErrAlreadyRunning is returned when Run is called twice on one session.
	ErrAlreadyRunning = errors.New("pastewire: receive loop already running")
	// ErrInvalidHandler is returned when Run is given a nil handler.
	ErrInvalidHandler = errors.New("pastewire: invalid handler")
)

// OpError describes a failed session operation.
// errors.Is matches both its Kind and the underlying cause.
type OpError struct {
	// Op is the operation, "dial" or "send".
	Op string
	// Addr is the remote address involved.
	Addr string
	// Kind is ErrConnectFailed or ErrSendFailed.
	Kind error
	// Err is the cause reported by the network stack.
	Err error
}

func (e *OpError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%v: %s %s: %v", e.Kind, e.Op, e.Addr, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind.
func (e *OpError) Is(target error) bool {
	return target == e.Kind
}

// Timeout reports whether the cause was a timeout.
func (e *OpError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// DecodeError reports a payload that is not valid text.
// The frame itself was structurally valid, so the session stays open.
type DecodeError struct {
	Type MessageType
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pastewire: decode %s payload: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newOpError(op, addr string, kind, err error) error {
	return errors.WithStack(&OpError{Op: op, Addr: addr, Kind: kind, Err: err})
}
