package pastewire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the fixed size of a frame header: 1 byte type, 4 bytes big-endian length.
const HeaderSize = 5

// MaxPayloadLength is the largest payload the 32-bit length field can describe.
const MaxPayloadLength = math.MaxUint32

// MessageType is the semantic tag carried in the first header byte.
// The codec never validates it; unknown values reach the handler unchanged.
type MessageType uint8

// Known message types. Values are fixed by wire compatibility with existing peers.
const (
	// TypeTextForPaste carries text the receiving peer should paste.
	TypeTextForPaste MessageType = 1
	// TypeCapturedText carries text captured on the sending side.
	TypeCapturedText MessageType = 2
)

func (t MessageType) String() string {
	switch t {
	case TypeTextForPaste:
		return "text_for_paste"
	case TypeCapturedText:
		return "captured_text"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Header is the fixed prefix of every frame.
type Header struct {
	Type   MessageType
	Length uint32
}

// Frame is one complete unit on the wire.
type Frame struct {
	Type    MessageType
	Payload []byte
}

// Length returns the payload length.
func (f Frame) Length() int {
	return len(f.Payload)
}

// Encode returns the wire form of a frame: header followed by the payload verbatim.
func Encode(t MessageType, payload []byte) ([]byte, error) {
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), t, payload)
}

// AppendFrame appends the wire form of a frame to dst.
func AppendFrame(dst []byte, t MessageType, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > MaxPayloadLength {
		return dst, ErrPayloadTooLarge
	}
	dst = append(dst, byte(t))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// EncodeHeader returns the 5-byte header for h.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(h.Type)
	binary.BigEndian.PutUint32(buf[1:HeaderSize], h.Length)
	return buf
}

// DecodeHeader parses the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	return Header{
		Type:   MessageType(b[0]),
		Length: binary.BigEndian.Uint32(b[1:HeaderSize]),
	}, nil
}

// Decode decodes one frame from the front of b and reports how many bytes it consumed.
// The returned payload is a copy and does not alias b.
func Decode(b []byte) (Frame, int, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Frame{}, 0, err
	}
	end := HeaderSize + uint64(h.Length)
	if uint64(len(b)) < end {
		return Frame{}, 0, ErrIncompleteFrame
	}
	payload := make([]byte, h.Length)
	copy(payload, b[HeaderSize:end])
	return Frame{Type: h.Type, Payload: payload}, int(end), nil
}
