package pastewire

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func mustEncode(t *testing.T, typ MessageType, payload string) []byte {
	t.Helper()
	b, err := Encode(typ, []byte(payload))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return b
}

func expectFrame(t *testing.T, r *Reader, typ MessageType, payload string) {
	t.Helper()
	f, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Type != typ || string(f.Payload) != payload {
		t.Fatalf("Next = (%v, %q), want (%v, %q)", f.Type, f.Payload, typ, payload)
	}
}

func expectEOF(t *testing.T, r *Reader) {
	t.Helper()
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReader_SplitAtEveryBoundary(t *testing.T) {
	b := mustEncode(t, TypeTextForPaste, "hello")

	for i := 0; i <= len(b); i++ {
		src := io.MultiReader(bytes.NewReader(b[:i]), bytes.NewReader(b[i:]))
		r := NewReader(src)

		expectFrame(t, r, TypeTextForPaste, "hello")
		expectEOF(t, r)
	}
}

func TestReader_SplitTwiceAtEveryBoundary(t *testing.T) {
	b := mustEncode(t, TypeCapturedText, "abc")

	for i := 0; i <= len(b); i++ {
		for j := i; j <= len(b); j++ {
			src := io.MultiReader(
				bytes.NewReader(b[:i]),
				bytes.NewReader(b[i:j]),
				bytes.NewReader(b[j:]),
			)
			r := NewReader(src)

			expectFrame(t, r, TypeCapturedText, "abc")
			expectEOF(t, r)
		}
	}
}

func TestReader_ChunkedSources(t *testing.T) {
	var stream []byte
	stream = append(stream, mustEncode(t, TypeTextForPaste, "first")...)
	stream = append(stream, mustEncode(t, TypeCapturedText, "")...)
	stream = append(stream, mustEncode(t, 99, "third frame")...)

	sources := map[string]func() io.Reader{
		"whole":    func() io.Reader { return bytes.NewReader(stream) },
		"one byte": func() io.Reader { return iotest.OneByteReader(bytes.NewReader(stream)) },
		"half":     func() io.Reader { return iotest.HalfReader(bytes.NewReader(stream)) },
		"data+eof": func() io.Reader { return iotest.DataErrReader(bytes.NewReader(stream)) },
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			r := NewReader(src(), WithReadBufferSize(16))

			expectFrame(t, r, TypeTextForPaste, "first")
			expectFrame(t, r, TypeCapturedText, "")
			expectFrame(t, r, 99, "third frame")
			expectEOF(t, r)
		})
	}
}

func TestReader_RetainsSurplus(t *testing.T) {
	var stream []byte
	stream = append(stream, mustEncode(t, TypeTextForPaste, "a")...)
	stream = append(stream, mustEncode(t, TypeTextForPaste, "b")...)

	r := NewReader(bytes.NewReader(stream))
	expectFrame(t, r, TypeTextForPaste, "a")

	if r.Buffered() != len(stream)/2 {
		t.Errorf("Buffered() = %d, want %d", r.Buffered(), len(stream)/2)
	}
	expectFrame(t, r, TypeTextForPaste, "b")
}

func TestReader_EmptyPayloadIsNotEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(mustEncode(t, TypeTextForPaste, "")))

	f, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Type != TypeTextForPaste || f.Payload == nil || len(f.Payload) != 0 {
		t.Errorf("Next = %+v, want empty type-1 frame", f)
	}
	expectEOF(t, r)
}

func TestReader_EmptySource(t *testing.T) {
	expectEOF(t, NewReader(bytes.NewReader(nil)))
}

func TestReader_TruncatedPayload(t *testing.T) {
	b := mustEncode(t, TypeTextForPaste, "hello world")

	for cut := HeaderSize; cut < len(b); cut++ {
		r := NewReader(bytes.NewReader(b[:cut]))
		_, err := r.Next()
		if !errors.Is(err, ErrTruncatedFrame) {
			t.Errorf("cut at %d: error = %v, want ErrTruncatedFrame", cut, err)
		}
		if err == io.EOF {
			t.Errorf("cut at %d: truncation reported as end of stream", cut)
		}
	}
}

func TestReader_TruncatedHeader(t *testing.T) {
	b := mustEncode(t, TypeTextForPaste, "hi")

	for cut := 1; cut < HeaderSize; cut++ {
		r := NewReader(bytes.NewReader(b[:cut]))
		if _, err := r.Next(); !errors.Is(err, ErrTruncatedFrame) {
			t.Errorf("cut at %d: error = %v, want ErrTruncatedFrame", cut, err)
		}
	}
}

func TestReader_TruncatedLargePayload(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), directPayloadLimit*2)
	b, _ := Encode(TypeTextForPaste, payload)

	r := NewReader(bytes.NewReader(b[:len(b)-1]))
	if _, err := r.Next(); !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("error = %v, want ErrTruncatedFrame", err)
	}
}

func TestReader_LargePayload(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), directPayloadLimit/5)
	b, _ := Encode(TypeCapturedText, payload)

	r := NewReader(iotest.HalfReader(bytes.NewReader(b)))
	f, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Error("large payload mismatch")
	}
	expectEOF(t, r)
}

func TestReader_MaxFrameSize(t *testing.T) {
	var stream []byte
	stream = append(stream, mustEncode(t, TypeTextForPaste, "fits")...)
	stream = append(stream, mustEncode(t, TypeTextForPaste, "too long")...)

	r := NewReader(bytes.NewReader(stream), WithMaxFrameSize(4))
	expectFrame(t, r, TypeTextForPaste, "fits")

	if _, err := r.Next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("error = %v, want ErrFrameTooLarge", err)
	}
}

func TestReader_HugeLengthWithoutData(t *testing.T) {
	// A header announcing 4 GiB followed by a handful of bytes must fail as truncated
	// without allocating the announced size.
	b := append(EncodeHeader(Header{Type: TypeTextForPaste, Length: MaxPayloadLength}), "abc"...)

	r := NewReader(bytes.NewReader(b))
	if _, err := r.Next(); !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("error = %v, want ErrTruncatedFrame", err)
	}
}

func TestReader_SourceError(t *testing.T) {
	errBoom := errors.New("boom")

	r := NewReader(iotest.ErrReader(errBoom))
	_, err := r.Next()
	if !errors.Is(err, errBoom) {
		t.Errorf("error = %v, want boom", err)
	}
	if errors.Is(err, ErrTruncatedFrame) || err == io.EOF {
		t.Errorf("source error misreported as %v", err)
	}
}

func TestReader_SourceErrorMidPayload(t *testing.T) {
	errBoom := errors.New("reset")
	b := mustEncode(t, TypeTextForPaste, "hello")

	r := NewReader(io.MultiReader(bytes.NewReader(b[:7]), iotest.ErrReader(errBoom)))
	if _, err := r.Next(); !errors.Is(err, errBoom) {
		t.Errorf("error = %v, want reset", err)
	}
}
