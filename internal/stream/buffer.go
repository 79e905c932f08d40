package stream

import "strings"

// Buffer accumulates streamed output fragments in arrival order and
// maintains the concatenated full text alongside them. No reordering or
// duplicate suppression is applied: the transport guarantees ordered,
// at-most-once delivery per connection.
type Buffer struct {
	fragments []string
	full      strings.Builder
}

// Append pushes a fragment onto the transcript. Amortized O(1).
func (b *Buffer) Append(fragment string) {
	b.fragments = append(b.fragments, fragment)
	b.full.WriteString(fragment)
}

// Len returns the number of accumulated fragments.
func (b *Buffer) Len() int {
	return len(b.fragments)
}

// Snapshot returns a copy of the fragment sequence and the concatenated
// full text, reflecting all appends up to the call.
func (b *Buffer) Snapshot() ([]string, string) {
	fragments := make([]string, len(b.fragments))
	copy(fragments, b.fragments)
	return fragments, b.full.String()
}

// Reset clears the transcript and the full text.
func (b *Buffer) Reset() {
	b.fragments = nil
	b.full.Reset()
}
