package idgen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsOutOfRangeMachineID(t *testing.T) {
	_, err := New(-1)
	require.Error(t, err)

	_, err = New(maxMachineID + 1)
	require.Error(t, err)

	_, err = New(0)
	require.NoError(t, err)

	_, err = New(maxMachineID)
	require.NoError(t, err)
}

func TestNext_Monotonic(t *testing.T) {
	g, err := New(7)
	require.NoError(t, err)

	var prev int64
	for i := 0; i < 10000; i++ {
		id := g.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNext_MonotonicAcrossGoroutines(t *testing.T) {
	g, err := New(1)
	require.NoError(t, err)

	const workers = 16
	const perWorker = 500

	ids := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, workers*perWorker)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestNext_SurvivesClockRegression(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)

	base := time.Now()
	callCount := 0
	g.now = func() time.Time {
		callCount++
		if callCount <= 2 {
			return base
		}
		// Simulate the clock jumping backward after the first two calls,
		// then recovering.
		if callCount <= 4 {
			return base.Add(-time.Second)
		}
		return base.Add(time.Second)
	}

	first := g.Next()
	second := g.Next()
	assert.GreaterOrEqual(t, second, first)

	third := g.Next()
	assert.Greater(t, third, second)
}

func TestNextString_IsDecimal(t *testing.T) {
	g, err := New(2)
	require.NoError(t, err)

	s := g.NextString()
	assert.Regexp(t, `^\d+$`, s)
}
