// Package ports hands out non-colliding debugging ports for concurrent
// sessions and reclaims them when a session closes.
package ports

import (
	"errors"
	"sync"
)

// ErrPoolExhausted is returned when every port in the range is held.
var ErrPoolExhausted = errors.New("port pool exhausted")

// Default range starts above the well-known DevTools port and stays
// inside the ephemeral-safe span.
const (
	DefaultBase = 9300
	DefaultSize = 200
)

// Pool allocates ports by linear scan from a base, skipping held ports
// and wrapping within the range. Acquire and Release are safe for
// concurrent use.
type Pool struct {
	mu   sync.Mutex
	base int
	size int
	next int          // scan cursor, relative to base
	held map[int]bool // Protected by mu
}

// NewPool creates a pool over [base, base+size).
func NewPool(base, size int) *Pool {
	if base <= 0 {
		base = DefaultBase
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{
		base: base,
		size: size,
		held: make(map[int]bool),
	}
}

// Acquire returns a port not held by any live session and marks it held.
// Two back-to-back acquisitions never observe the same free port.
func (p *Pool) Acquire() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.size; i++ {
		port := p.base + (p.next+i)%p.size
		if !p.held[port] {
			p.held[port] = true
			p.next = (p.next + i + 1) % p.size
			return port, nil
		}
	}
	return 0, ErrPoolExhausted
}

// AcquirePair returns two distinct ports, releasing the first if the
// second cannot be allocated.
func (p *Pool) AcquirePair() (int, int, error) {
	first, err := p.Acquire()
	if err != nil {
		return 0, 0, err
	}
	second, err := p.Acquire()
	if err != nil {
		p.Release(first)
		return 0, 0, err
	}
	return first, second, nil
}

// Release returns a port to the pool. Releasing a port that is not held
// is a no-op.
func (p *Pool) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.held, port)
}

// Held reports the number of ports currently allocated.
func (p *Pool) Held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.held)
}
