package pastewire

import (
	"context"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DecodeText returns the payload of f as text. A payload that is not valid UTF-8
// yields a *DecodeError; the frame is otherwise fine and the session can continue.
func DecodeText(f Frame) (string, error) {
	if _, _, err := transform.Bytes(encoding.UTF8Validator, f.Payload); err != nil {
		return "", &DecodeError{Type: f.Type, Err: err}
	}
	return string(f.Payload), nil
}

// TextHandler returns a Handler that decodes each payload as text before calling fn.
// Decode failures are returned as *DecodeError without calling fn.
func TextHandler(fn func(ctx context.Context, s *Session, t MessageType, text string) error) Handler {
	return HandlerFunc(func(ctx context.Context, s *Session, f Frame) error {
		text, err := DecodeText(f)
		if err != nil {
			return err
		}
		return fn(ctx, s, f.Type, text)
	})
}

// Transformer builds the reply text for a received text frame.
type Transformer interface {
	Transform(t MessageType, text string) (string, error)
}

// TransformFunc adapts an ordinary function to a Transformer.
type TransformFunc func(t MessageType, text string) (string, error)

// Transform calls fn(t, text).
func (fn TransformFunc) Transform(t MessageType, text string) (string, error) {
	return fn(t, text)
}

// ReplyHandler returns a Handler that answers every received text frame on the same
// session with a frame of type replyType carrying tr's output.
func ReplyHandler(tr Transformer, replyType MessageType) Handler {
	return TextHandler(func(_ context.Context, s *Session, t MessageType, text string) error {
		out, err := tr.Transform(t, text)
		if err != nil {
			return err
		}
		return s.SendText(replyType, out)
	})
}
