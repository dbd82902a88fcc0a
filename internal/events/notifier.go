package events

import (
	"context"
	"sync"

	"restaurant-system/internal/models"
)

// Notifier receives change events after a write has been committed.
// Implementations must not fail the write; they log their own errors.
type Notifier interface {
	Notify(ctx context.Context, event *models.ChangeEvent)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(ctx context.Context, event *models.ChangeEvent)

func (f NotifierFunc) Notify(ctx context.Context, event *models.ChangeEvent) {
	f(ctx, event)
}

// Fanout delivers each event to every notifier in order
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event *models.ChangeEvent) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// Nop discards events
type Nop struct{}

func (Nop) Notify(context.Context, *models.ChangeEvent) {}

// Recorder keeps every event it receives
type Recorder struct {
	mu     sync.Mutex
	Events []*models.ChangeEvent
}

func (r *Recorder) Notify(_ context.Context, event *models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
}

// Last returns the most recent event or nil
func (r *Recorder) Last() *models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Events) == 0 {
		return nil
	}
	return r.Events[len(r.Events)-1]
}
