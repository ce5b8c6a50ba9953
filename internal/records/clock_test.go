package records

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockNextIsStrictlyIncreasing(t *testing.T) {
	c := NewClock()
	prev := int64(0)
	for i := 0; i < 100; i++ {
		n := c.Next()
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestClockStartsAtSeed(t *testing.T) {
	c := NewClockAt(42)
	assert.Equal(t, int64(42), c.Current())
	assert.Equal(t, int64(43), c.Next())
}

func TestClockConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()

	const goroutines = 8
	const perGoroutine = 500

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				n := c.Next()
				mu.Lock()
				if seen[n] {
					t.Errorf("duplicate seq %d", n)
				}
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), c.Current())
}

func TestClockAdvanceTo(t *testing.T) {
	c := NewClockAt(10)

	c.AdvanceTo(25)
	assert.Equal(t, int64(25), c.Current())

	// Backwards is a no-op.
	c.AdvanceTo(5)
	assert.Equal(t, int64(25), c.Current())
	assert.Equal(t, int64(26), c.Next())
}
