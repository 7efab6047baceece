package driver

import "time"

// Stage is a step of generating one target.
type Stage string

const (
	// StageEmit renders the target's files.
	StageEmit Stage = "emit"
	// StageCheck compares the emitted structs with the IR layout.
	StageCheck Stage = "check"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one target.
type Event struct {
	Target  string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from the
// goroutines generating targets.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func (c *Config) report(evt Event) {
	if c.Progress == nil {
		return
	}
	c.Progress.OnEvent(evt)
}
