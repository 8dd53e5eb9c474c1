package transport

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// Dispatcher fans revealed events out from one source to multiple
// subscribers. When a subscriber's buffer is full the event is dropped for
// that subscriber rather than blocking the replay loop; drops are counted.
type Dispatcher struct {
	source       <-chan models.Event
	subscribers  []chan models.Event
	bufferSize   int
	mu           sync.Mutex
	droppedTotal int64 // atomic
}

func NewDispatcher(source <-chan models.Event, bufferSize int) *Dispatcher {
	return &Dispatcher{
		source:      source,
		subscribers: make([]chan models.Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving copies of all source events.
// Subscribers should be added before Run so none of the stream is missed.
func (d *Dispatcher) Subscribe() <-chan models.Event {
	ch := make(chan models.Event, d.bufferSize)
	d.mu.Lock()
	d.subscribers = append(d.subscribers, ch)
	d.mu.Unlock()
	return ch
}

// SubscriberCount returns the current number of subscribers.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers)
}

// DroppedCount returns the total number of events dropped because a
// subscriber buffer was full.
func (d *Dispatcher) DroppedCount() int64 {
	return atomic.LoadInt64(&d.droppedTotal)
}

// Run blocks until ctx is cancelled or the source closes, then closes all
// subscriber channels.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.source:
			if !ok {
				return
			}
			d.dispatch(ctx, event)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event models.Event) {
	d.mu.Lock()
	subs := d.subscribers
	d.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		case <-ctx.Done():
			return
		default:
			dropped++
			atomic.AddInt64(&d.droppedTotal, 1)
		}
	}

	if dropped > 0 {
		log.Printf("dispatcher: dropped %s event at %s for %d subscriber(s) (buffer full)",
			event.TripID, event.Timestamp, dropped)
	}
}

func (d *Dispatcher) closeSubscribers() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subscribers {
		close(sub)
	}
}
