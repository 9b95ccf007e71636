package pastewire

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const (
	// defaultReadBufferSize is the size of the accumulation buffer in front of the source.
	defaultReadBufferSize = 4096
	// directPayloadLimit is the largest payload allocated up front; larger payloads grow as bytes arrive.
	directPayloadLimit = 64 * 1024
)

// Reader turns an arbitrarily chunked byte stream into whole frames.
//
// Bytes past a frame boundary stay buffered for the next call, so a single read from the
// source may carry several frames, or a fraction of one. A Reader is not safe for concurrent use.
type Reader struct {
	br           *bufio.Reader
	hdr          [HeaderSize]byte
	maxFrameSize uint32
	bufferSize   int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxFrameSize rejects frames whose header announces more than size payload bytes.
// Zero disables the limit.
func WithMaxFrameSize(size uint32) ReaderOption {
	return func(r *Reader) {
		r.maxFrameSize = size
	}
}

// WithReadBufferSize sets the size of the accumulation buffer.
func WithReadBufferSize(size int) ReaderOption {
	return func(r *Reader) {
		r.bufferSize = size
	}
}

// NewReader returns a Reader consuming src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{bufferSize: defaultReadBufferSize}
	for _, o := range opts {
		o(r)
	}
	if r.bufferSize <= 0 {
		r.bufferSize = defaultReadBufferSize
	}
	r.br = bufio.NewReaderSize(src, r.bufferSize)
	return r
}

// Buffered returns the number of bytes read from the source but not yet returned in a frame.
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}

// Next blocks until a whole frame is available and returns it.
//
// It returns io.EOF when the source ends cleanly on a frame boundary, and an error matching
// ErrTruncatedFrame when the source ends inside a header or payload. Other source errors are
// returned wrapped.
func (r *Reader) Next() (Frame, error) {
	n, err := io.ReadFull(r.br, r.hdr[:])
	if err != nil {
		switch {
		case n == 0 && errors.Is(err, io.EOF):
			return Frame{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Frame{}, errors.Wrapf(ErrTruncatedFrame, "header: got %d of %d bytes", n, HeaderSize)
		default:
			return Frame{}, errors.WithStack(err)
		}
	}

	h, err := DecodeHeader(r.hdr[:])
	if err != nil {
		return Frame{}, err
	}
	if r.maxFrameSize > 0 && h.Length > r.maxFrameSize {
		return Frame{}, errors.Wrapf(ErrFrameTooLarge, "length %d, limit %d", h.Length, r.maxFrameSize)
	}

	payload, err := r.readPayload(h.Length)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: h.Type, Payload: payload}, nil
}

func (r *Reader) readPayload(length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}

	if length <= directPayloadLimit {
		payload := make([]byte, length)
		n, err := io.ReadFull(r.br, payload)
		if err != nil {
			return nil, payloadError(err, int64(n), length)
		}
		return payload, nil
	}

	// Grow with the data actually received so a bogus length cannot force a huge allocation.
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r.br, int64(length))
	if err != nil {
		return nil, payloadError(err, n, length)
	}
	return buf.Bytes(), nil
}

func payloadError(err error, got int64, want uint32) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrapf(ErrTruncatedFrame, "payload: got %d of %d bytes", got, want)
	}
	return errors.WithStack(err)
}
