// Package transform holds the reply transform used by the client: received text is
// wrapped in a marker on both sides before it is sent back for pasting.
package transform

import (
	"strings"

	"github.com/Zereker/pastewire"
)

// DefaultMarker is the marker existing peers look for.
const DefaultMarker = "333KLKLKL333"

// Marker wraps text in a fixed marker string.
type Marker string

// Apply returns text with the marker on both sides.
func (m Marker) Apply(text string) string {
	var b strings.Builder
	b.Grow(2*len(m) + len(text))
	b.WriteString(string(m))
	b.WriteString(text)
	b.WriteString(string(m))
	return b.String()
}

// Strip removes one marker from each side of text. It reports false when text is not wrapped.
func (m Marker) Strip(text string) (string, bool) {
	if len(text) < 2*len(m) || !strings.HasPrefix(text, string(m)) || !strings.HasSuffix(text, string(m)) {
		return text, false
	}
	return text[len(m) : len(text)-len(m)], true
}

// Transform implements pastewire.Transformer. The message type does not change the result.
func (m Marker) Transform(_ pastewire.MessageType, text string) (string, error) {
	return m.Apply(text), nil
}
