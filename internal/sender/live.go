package sender

import (
	"context"
	"sync/atomic"

	"reqsender/internal/model"
)

// Live forwards to the most recently stored Sender. A configuration
// reload swaps in a new one while sends are in flight; each send runs
// entirely on the Sender it started with.
type Live struct {
	current atomic.Pointer[Sender]
}

// NewLive returns a Live holding s
func NewLive(s *Sender) *Live {
	l := &Live{}
	l.current.Store(s)
	return l
}

// Swap replaces the active sender
func (l *Live) Swap(s *Sender) {
	l.current.Store(s)
}

// Current returns the active sender
func (l *Live) Current() *Sender {
	return l.current.Load()
}

func (l *Live) Profile() model.Profile {
	return l.Current().Profile()
}

func (l *Live) Send(ctx context.Context, t model.RequestTemplate, values map[string]string) (model.LogEntry, error) {
	return l.Current().Send(ctx, t, values)
}

func (l *Live) SendSelection(ctx context.Context, t model.RequestTemplate, selected, field string) (model.LogEntry, error) {
	return l.Current().SendSelection(ctx, t, selected, field)
}
