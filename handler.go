package pastewire

import "context"

// Handler processes frames received on a session.
//
// HandleFrame runs on the session's receive goroutine. It may call s.Send to reply;
// sends are serialized with every other sender of the session.
type Handler interface {
	HandleFrame(ctx context.Context, s *Session, f Frame) error
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(ctx context.Context, s *Session, f Frame) error

// HandleFrame calls fn(ctx, s, f).
func (fn HandlerFunc) HandleFrame(ctx context.Context, s *Session, f Frame) error {
	return fn(ctx, s, f)
}

// TypeMux routes frames to the handler registered for their message type.
// Frames of an unregistered type go to the fallback, or are dropped when there is none.
// Register handlers before the mux is passed to Run.
type TypeMux struct {
	handlers map[MessageType]Handler
	fallback Handler
}

// NewTypeMux returns an empty mux. fallback may be nil.
func NewTypeMux(fallback Handler) *TypeMux {
	return &TypeMux{
		handlers: make(map[MessageType]Handler),
		fallback: fallback,
	}
}

// Handle registers h for frames of type t, replacing any earlier registration.
func (m *TypeMux) Handle(t MessageType, h Handler) {
	m.handlers[t] = h
}

// HandleFrame implements Handler.
func (m *TypeMux) HandleFrame(ctx context.Context, s *Session, f Frame) error {
	if h, ok := m.handlers[f.Type]; ok {
		return h.HandleFrame(ctx, s, f)
	}
	if m.fallback != nil {
		return m.fallback.HandleFrame(ctx, s, f)
	}
	return nil
}
