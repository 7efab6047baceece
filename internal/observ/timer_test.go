package observ

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := time.Unix(0, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(time.Millisecond)

	a := tm.Begin("decode")
	tm.End(a, "12 types")
	require.Error(t, tm.Time("classify", func() error { return errors.New("boom") }))
	tm.End(99, "ignored")

	r := tm.Report()
	require.Len(t, r.Phases, 2)
	assert.Equal(t, "decode", r.Phases[0].Name)
	assert.InDelta(t, 1.0, r.Phases[0].DurationMS, 1e-9)
	assert.Equal(t, "12 types", r.Phases[0].Note)
	assert.Equal(t, "failed", r.Phases[1].Note)
	assert.InDelta(t, 3.0, r.TotalMS, 1e-9, "first start to last end")

	s := tm.Summary()
	assert.Contains(t, s, "decode")
	assert.Contains(t, s, "// failed")
	assert.Contains(t, s, "total")
}

func TestTimerConcurrentPhases(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for _, name := range []string{"c", "python", "csharp", "go"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tm.Time("emit "+name, func() error { return nil })
		}()
	}
	wg.Wait()
	assert.Len(t, tm.Report().Phases, 4)
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	assert.Equal(t, -1, tm.Begin("x"))
	tm.End(0, "")
	assert.NoError(t, tm.Time("x", func() error { return nil }))
	assert.Empty(t, tm.Report().Phases)
}
