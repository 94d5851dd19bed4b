package store

import "sync"

// Buffer is a thread-safe circular buffer bounding per-session log retention
type Buffer struct {
	data []byte
	size int
	head int
	tail int
	full bool
	mu   sync.RWMutex
}

// NewBuffer creates a new circular buffer
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = 64 * 1024
	}
	return &Buffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write appends data, overwriting the oldest bytes once the buffer is full
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		b.data[b.tail] = c
		b.tail = (b.tail + 1) % b.size

		if b.full {
			b.head = b.tail
		} else if b.tail == b.head {
			b.full = true
		}
	}

	return len(p), nil
}

// Bytes returns a copy of the retained window without consuming it
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.head == b.tail && !b.full {
		return []byte{}
	}

	if b.tail > b.head {
		out := make([]byte, b.tail-b.head)
		copy(out, b.data[b.head:b.tail])
		return out
	}

	// Buffer wrapped around
	firstPart := b.data[b.head:]
	secondPart := b.data[:b.tail]
	out := make([]byte, len(firstPart)+len(secondPart))
	copy(out, firstPart)
	copy(out[len(firstPart):], secondPart)
	return out
}

// Len reports the number of retained bytes
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.full {
		return b.size
	}
	if b.tail >= b.head {
		return b.tail - b.head
	}
	return b.size - b.head + b.tail
}
