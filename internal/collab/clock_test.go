package collab

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Sequence(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_ResumeFromPersistedSeq(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(42), c.Next())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const n = 100

	var wg sync.WaitGroup
	seen := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool, n)
	for s := range seen {
		unique[s] = true
	}
	assert.Len(t, unique, n)
	assert.Equal(t, int64(n), c.Current())
}
