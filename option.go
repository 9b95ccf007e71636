package pastewire

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// ErrorAction defines the action to take when a handler returns an error.
type ErrorAction int

const (
	// Disconnect closes the session when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and keeps receiving frames.
	Continue
)

// ContextDialer dials a network address. *net.Dialer and the SOCKS5 dialers of
// golang.org/x/net/proxy satisfy it.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// options holds the configuration for a session.
type options struct {
	logger Logger
	dialer ContextDialer

	// onError decides what the receive loop does with a handler error.
	onError func(error) ErrorAction

	connectTimeout time.Duration // 0 means no timeout
	readTimeout    time.Duration // deadline for each frame read, 0 means none
	writeTimeout   time.Duration // deadline for each frame write, 0 means none
	maxFrameSize   uint32        // largest accepted inbound payload, 0 means no limit
	readBufferSize int           // size of the inbound accumulation buffer
}

// Option is a function that configures session options.
type Option func(*options)

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// OnErrorOption returns an Option that sets the handler error policy.
// Return Disconnect to end the receive loop with the error, or Continue to keep going.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// DialerOption returns an Option that replaces the dialer used by Dial.
func DialerOption(d ContextDialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// ConnectTimeoutOption bounds the TCP handshake performed by Dial.
func ConnectTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = timeout
	}
}

// ReadTimeoutOption sets a deadline for receiving each frame.
// An idle peer then ends the receive loop with a timeout error.
func ReadTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.readTimeout = timeout
	}
}

// WriteTimeoutOption sets a deadline for writing each frame.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// MaxFrameSizeOption rejects inbound frames announcing more than size payload bytes.
func MaxFrameSizeOption(size uint32) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// ReadBufferSizeOption sets the size of the inbound accumulation buffer.
func ReadBufferSizeOption(size int) Option {
	return func(o *options) {
		o.readBufferSize = size
	}
}

// DefaultErrorPolicy keeps the session open for text decode failures and
// disconnects on anything else.
func DefaultErrorPolicy(err error) ErrorAction {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return Continue
	}
	return Disconnect
}

// checkOptions sets default values for session options.
func checkOptions(opts *options) {
	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	if opts.onError == nil {
		opts.onError = DefaultErrorPolicy
	}

	if opts.readBufferSize <= 0 {
		opts.readBufferSize = defaultReadBufferSize
	}

	if opts.dialer == nil {
		opts.dialer = &net.Dialer{Timeout: opts.connectTimeout}
	}
}

func newOptions(opt []Option) options {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return opts
}
