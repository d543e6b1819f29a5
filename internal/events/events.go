// Package events carries resume generation status notifications from runs to SSE subscribers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/types"
)

// Event is a snapshot of a run's progress.
type Event struct {
	ResumeID   uuid.UUID              `json:"resume_id"`
	Attempt    int                    `json:"attempt"`
	Status     types.GenerationStatus `json:"status"`
	ChunkCount int                    `json:"chunk_count"`
	Error      string                 `json:"error,omitempty"`
	At         time.Time              `json:"at"`
}

// Terminal reports whether the event ends its run.
func (e Event) Terminal() bool {
	return e.Status.IsTerminal()
}

// Publisher sends events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events for one resume. The returned channel is closed when ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, resumeID uuid.UUID) (<-chan Event, error)
}

// subscriberBuffer is the per-subscriber queue length. Progress events beyond it are
// dropped for that subscriber; terminal events are always queued.
const subscriberBuffer = 32

// deliver queues event on ch without blocking. When ch is full a progress event is
// dropped, and a terminal event evicts the oldest queued event to make room.
// Callers must be the only sender on ch.
func deliver(ch chan Event, event Event) {
	for {
		select {
		case ch <- event:
			return
		default:
		}
		if !event.Terminal() {
			return
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Broker is an in-process Publisher and Subscriber.
type Broker struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Publish delivers event to current subscribers without blocking.
func (b *Broker) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[event.ResumeID] {
		deliver(ch, event)
	}
	return nil
}

// Subscribe registers a subscriber for resumeID until ctx is done.
func (b *Broker) Subscribe(ctx context.Context, resumeID uuid.UUID) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[resumeID] == nil {
		b.subs[resumeID] = make(map[chan Event]struct{})
	}
	b.subs[resumeID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[resumeID], ch)
		if len(b.subs[resumeID]) == 0 {
			delete(b.subs, resumeID)
		}
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// subscriberCount is used by tests.
func (b *Broker) subscriberCount(resumeID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[resumeID])
}
