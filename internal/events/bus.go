package events

import (
	"context"
	"log"
	"sync"
)

// subscriberBuffer bounds each subscriber's queue. Publishing never blocks;
// overflow is counted and dropped.
const subscriberBuffer = 64

// Bus fans job events out to per-job subscribers. After a job's terminal
// event every subscriber channel is closed and the job is forgotten; later
// publishes for that job are dropped.
type Bus struct {
	mu      sync.Mutex
	subs    map[string][]chan Event
	done    map[string]bool
	dropped int64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]chan Event),
		done: make(map[string]bool),
	}
}

// Subscribe returns a channel of events for one job. The channel closes
// after the job's terminal event, or never if the job never terminates.
// Subscribing to an already-terminated job yields a closed channel.
func (b *Bus) Subscribe(jobID string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done[jobID] {
		close(ch)
		return ch
	}
	b.subs[jobID] = append(b.subs[jobID], ch)
	return ch
}

// Publish delivers the event to every subscriber of its job. A terminal
// event additionally closes the job's channels; at most one terminal event
// is ever delivered per job.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done[ev.JobID] {
		b.dropped++
		log.Printf("[events] dropping event for terminated job %s: %s/%s", ev.JobID, ev.Stage, ev.Type)
		return
	}

	for _, ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			b.dropped++
		}
	}

	if ev.Terminal() {
		b.done[ev.JobID] = true
		for _, ch := range b.subs[ev.JobID] {
			close(ch)
		}
		delete(b.subs, ev.JobID)
	}
}

// Dropped returns the number of events lost to full queues or terminated
// jobs.
func (b *Bus) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Forget closes any subscribers for a job without a terminal event.
// Used when a job is abandoned before it produces one.
func (b *Bus) Forget(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[jobID] {
		close(ch)
	}
	delete(b.subs, jobID)
	delete(b.done, jobID)
}

// Stream subscribes to a job and yields each event in its wire envelope
// until the terminal event or ctx cancellation. The returned channel is
// always closed when the stream ends.
func (b *Bus) Stream(ctx context.Context, jobID string) <-chan []byte {
	out := make(chan []byte, subscriberBuffer)
	in := b.Subscribe(jobID)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				frame, err := ev.Envelope()
				if err != nil {
					log.Printf("[events] marshal event: %v", err)
					continue
				}
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
