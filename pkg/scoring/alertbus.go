package scoring

import (
	"context"
	"sync"

	"sentryflow/shared/types"
)

// Sink receives alert decisions. Delivery is best-effort: sinks log their
// own failures and never surface them to the scoring loop.
type Sink interface {
	Deliver(ctx context.Context, alert types.AlertDecision)
}

// Bus is a small in-memory fan-out from the scoring loop to alert sinks,
// so slow webhook deliveries never stall scoring of subsequent devices.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
	queue chan types.AlertDecision
	stop  chan struct{}
}

// NewBus constructs a bus with a bounded queue.
func NewBus(buffer int) *Bus {
	b := &Bus{
		queue: make(chan types.AlertDecision, buffer),
		stop:  make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Bus) loop() {
	for {
		select {
		case alert := <-b.queue:
			b.dispatch(alert)
		case <-b.stop:
			return
		}
	}
}

// Close stops the bus.
func (b *Bus) Close() { close(b.stop) }

// Register adds a sink.
func (b *Bus) Register(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish enqueues an alert decision.
func (b *Bus) Publish(ctx context.Context, alert types.AlertDecision) error {
	select {
	case b.queue <- alert:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) dispatch(alert types.AlertDecision) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()
	ctx := context.Background()
	for _, sink := range sinks {
		sink.Deliver(ctx, alert)
	}
}
