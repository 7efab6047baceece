package driver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) last(target string) Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out Event
	for _, e := range r.events {
		if e.Target == target {
			out = e
		}
	}
	return out
}

func TestProgressEvents(t *testing.T) {
	rec := &recorder{}
	_, err := Run(context.Background(), reference(t), Config{
		Targets:  []string{"c", "broken-a"},
		Registry: registryWithBroken(t),
		Progress: rec,
	})
	require.Error(t, err)

	require.GreaterOrEqual(t, len(rec.events), 2)
	assert.Equal(t, StatusQueued, rec.events[0].Status)
	assert.Equal(t, StatusQueued, rec.events[1].Status)

	c := rec.last("c")
	assert.Equal(t, StatusDone, c.Status)
	assert.Equal(t, StageCheck, c.Stage)
	assert.NoError(t, c.Err)

	broken := rec.last("broken-a")
	assert.Equal(t, StatusError, broken.Status)
	assert.Equal(t, StageEmit, broken.Stage)
	assert.Error(t, broken.Err)
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{Target: "go", Status: StatusDone})
	assert.Equal(t, "go", (<-ch).Target)
	ChannelSink{}.OnEvent(Event{Target: "dropped"})
}

func TestTargetIDs(t *testing.T) {
	assert.Equal(t, []string{"python", "c"}, Config{Targets: []string{"python", "c", "python"}}.TargetIDs())
	assert.Equal(t, []string{"c", "csharp", "go", "python"}, Config{}.TargetIDs())
}
