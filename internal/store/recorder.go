// Package store persists relationship-change events to an optional external
// sink. Persistence is best-effort: callers log write failures and continue,
// and the in-memory graph never depends on the sink.
package store

import "context"

// Event is one append-only relationship-change row.
type Event struct {
	ID        string
	Timestamp int64 // epoch milliseconds
	GuildID   string
	ChannelID string
	SourceID  string
	TargetID  string
	Reason    string
}

// Recorder is the injectable sink interface. The default is Noop, so an
// unconfigured sink costs nothing on the interaction path.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Noop discards every event.
type Noop struct{}

// NewNoop returns a Recorder that does nothing.
func NewNoop() Noop {
	return Noop{}
}

// Record implements Recorder.
func (Noop) Record(context.Context, Event) error {
	return nil
}
