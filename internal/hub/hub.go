// Package hub tracks the live sessions of a peer, fans captured text out to them,
// and keeps the latest text received for pasting.
package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Zereker/pastewire"
)

// Hub is the peer-side registry of sessions. It is safe for concurrent use.
type Hub struct {
	logger pastewire.Logger

	mu       sync.RWMutex
	sessions map[*pastewire.Session]struct{}

	paste atomic.Pointer[string]
}

// New returns an empty Hub.
func New(logger pastewire.Logger) *Hub {
	if logger == nil {
		logger = pastewire.NopLogger()
	}
	h := &Hub{
		logger:   logger,
		sessions: make(map[*pastewire.Session]struct{}),
	}
	empty := ""
	h.paste.Store(&empty)
	return h
}

// Add registers a session.
func (h *Hub) Add(s *pastewire.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
	h.logger.Info("client connected", "addr", s.RemoteAddr(), "clients", len(h.sessions))
}

// Remove unregisters a session. Removing an unknown session is a no-op.
func (h *Hub) Remove(s *pastewire.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	h.logger.Info("client disconnected", "addr", s.RemoteAddr(), "clients", len(h.sessions))
}

// Len returns the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast sends one frame to every registered session and returns how many
// succeeded. Sessions whose send fails are dropped from the hub.
func (h *Hub) Broadcast(t pastewire.MessageType, payload []byte) int {
	h.mu.RLock()
	targets := make([]*pastewire.Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	sent := 0
	var dead []*pastewire.Session
	for _, s := range targets {
		if err := s.Send(t, payload); err != nil {
			h.logger.Warn("broadcast failed", "addr", s.RemoteAddr(), "error", err)
			dead = append(dead, s)
			continue
		}
		sent++
	}

	for _, s := range dead {
		h.Remove(s)
	}

	h.logger.Debug("broadcast done", "type", t, "length", len(payload), "sent", sent, "dropped", len(dead))
	return sent
}

// Paste returns the latest text received for pasting.
func (h *Hub) Paste() string {
	return *h.paste.Load()
}

// SetPaste replaces the paste buffer.
func (h *Hub) SetPaste(text string) {
	h.paste.Store(&text)
}

// HandleFrame implements pastewire.Handler. Text-for-paste frames replace the paste
// buffer; other types are logged and skipped.
func (h *Hub) HandleFrame(_ context.Context, s *pastewire.Session, f pastewire.Frame) error {
	if f.Type != pastewire.TypeTextForPaste {
		h.logger.Warn("unknown message type", "addr", s.RemoteAddr(), "type", f.Type, "length", f.Length())
		return nil
	}

	text, err := pastewire.DecodeText(f)
	if err != nil {
		return err
	}

	h.SetPaste(text)
	h.logger.Info("paste buffer updated", "addr", s.RemoteAddr(), "length", f.Length())
	return nil
}
