package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
)

var (
	_ cascade.Sequencer      = (*DeterministicClock)(nil)
	_ cascade.TokenGenerator = (*SequenceGenerator)(nil)
)

func TestDeterministicClock_NextAndReset(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ConcurrentNextIsUnique(t *testing.T) {
	clock := NewDeterministicClock()
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				n := clock.Next()
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 400)
	assert.Equal(t, int64(400), clock.Current())
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("edit")
	assert.Equal(t, "edit-1", gen.Generate())
	assert.Equal(t, "edit-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "edit-1", gen.Generate())

	assert.Equal(t, "cascade-1", NewSequenceGenerator("").Generate())
}
