package ports

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireDistinct(t *testing.T) {
	p := NewPool(9300, 16)

	seen := make(map[int]bool)
	for i := 0; i < 16; i++ {
		port, err := p.Acquire()
		require.NoError(t, err)
		assert.False(t, seen[port], "port %d handed out twice", port)
		assert.GreaterOrEqual(t, port, 9300)
		assert.Less(t, port, 9316)
		seen[port] = true
	}
}

func TestExhaustion(t *testing.T) {
	p := NewPool(9300, 2)

	_, err := p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)

	_, err = p.Acquire()
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestReleaseAllowsReacquire(t *testing.T) {
	p := NewPool(9300, 1)

	port, err := p.Acquire()
	require.NoError(t, err)

	p.Release(port)

	again, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, port, again)
}

func TestReleaseIdempotent(t *testing.T) {
	p := NewPool(9300, 4)

	port, err := p.Acquire()
	require.NoError(t, err)

	// Releasing twice, or releasing a port never held, is a no-op.
	p.Release(port)
	p.Release(port)
	p.Release(9999)

	assert.Equal(t, 0, p.Held())
}

func TestAcquirePairRollsBack(t *testing.T) {
	p := NewPool(9300, 1)

	_, _, err := p.AcquirePair()
	assert.ErrorIs(t, err, ErrPoolExhausted)

	// The single port must have been returned to the pool.
	assert.Equal(t, 0, p.Held())
	_, err = p.Acquire()
	assert.NoError(t, err)
}

func TestAcquirePair(t *testing.T) {
	p := NewPool(9300, 8)

	node, window, err := p.AcquirePair()
	require.NoError(t, err)
	assert.NotEqual(t, node, window)
	assert.Equal(t, 2, p.Held())
}

func TestConcurrentAcquire(t *testing.T) {
	const workers = 32
	p := NewPool(9300, workers)

	var wg sync.WaitGroup
	results := make(chan int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			port, err := p.Acquire()
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			results <- port
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for port := range results {
		if seen[port] {
			t.Errorf("port %d handed out to two goroutines", port)
		}
		seen[port] = true
	}
	assert.Equal(t, workers, len(seen))
}
