// Package staging implements chunked out-of-band loading of tokenizer data:
// callers append raw vocabulary and merges bytes in arbitrary chunk sizes,
// then initialize a tokenizer service from the staged contents.
package staging

import "sync"

// Buffer accumulates uploaded byte chunks. Safe for concurrent use.
type Buffer struct {
	mu   sync.Mutex
	data []byte
}

// Append adds a chunk to the buffer.
func (b *Buffer) Append(chunk []byte) {
	b.mu.Lock()
	b.data = append(b.data, chunk...)
	b.mu.Unlock()
}

// Len returns the number of staged bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Clear discards the staged bytes.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
}

// Take returns the staged bytes and leaves the buffer empty. A second Take
// returns nil.
func (b *Buffer) Take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := b.data
	b.data = nil
	return data
}
