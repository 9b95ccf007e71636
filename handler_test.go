package pastewire

import (
	"context"
	"errors"
	"testing"
)

func TestTypeMux(t *testing.T) {
	var got []string
	record := func(name string) Handler {
		return HandlerFunc(func(_ context.Context, _ *Session, f Frame) error {
			got = append(got, name+":"+string(f.Payload))
			return nil
		})
	}

	mux := NewTypeMux(record("fallback"))
	mux.Handle(TypeCapturedText, record("captured"))

	ctx := context.Background()
	for _, f := range []Frame{
		{Type: TypeCapturedText, Payload: []byte("a")},
		{Type: TypeTextForPaste, Payload: []byte("b")},
		{Type: MessageType(9), Payload: []byte("c")},
	} {
		if err := mux.HandleFrame(ctx, nil, f); err != nil {
			t.Fatalf("HandleFrame(%v) failed: %v", f.Type, err)
		}
	}

	want := []string{"captured:a", "fallback:b", "fallback:c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTypeMux_NoFallback(t *testing.T) {
	mux := NewTypeMux(nil)
	if err := mux.HandleFrame(context.Background(), nil, Frame{Type: TypeTextForPaste}); err != nil {
		t.Errorf("unregistered type without fallback = %v, want nil", err)
	}
}

func TestTypeMux_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	mux := NewTypeMux(nil)
	mux.Handle(TypeTextForPaste, HandlerFunc(func(context.Context, *Session, Frame) error {
		return boom
	}))

	if err := mux.HandleFrame(context.Background(), nil, Frame{Type: TypeTextForPaste}); err != boom {
		t.Errorf("HandleFrame = %v, want %v", err, boom)
	}
}
