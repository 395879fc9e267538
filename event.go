package axle

import (
	"context"
	"reflect"
	"sync"
)

// eventAccess is the validator marker for event endpoints of type E: a
// system may hold at most one endpoint per event type.
type eventAccess[E any] struct{}

// eventQueue is one reader's unbounded FIFO. Writers append under the mutex
// and ping the world signal so blocked readers wake.
type eventQueue[E any] struct {
	mu     sync.Mutex
	items  []E
	signal *notifier
}

func (q *eventQueue[E]) push(e E) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.signal.Broadcast()
}

func (q *eventQueue[E]) tryPop() (E, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero E
		return zero, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

func (q *eventQueue[E]) drain() []E {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// eventHub is the per-event-type registry resource: the latched list of
// every reader's queue. It is created lazily by the first endpoint of its
// type.
type eventHub[E any] struct {
	latch  *Latch
	queues []*eventQueue[E]
}

func hubFor[E any](ctx context.Context, w *World) (*eventHub[E], error) {
	v, err := w.resources.getResourceOrInsert(ctx, reflect.TypeFor[eventHub[E]](), func() any {
		return &eventHub[E]{latch: newLatch(w.signal)}
	})
	if err != nil {
		return nil, err
	}
	return v.(*eventHub[E]), nil
}

// EventWriter sends events of type E. Deliveries fan out: every send
// reaches every reader queue registered at that moment, in send order.
type EventWriter[E any] struct {
	world *World
	hub   *eventHub[E]
}

func (wr *EventWriter[E]) initParam(ctx context.Context, w *World, sys SystemID) error {
	hub, err := hubFor[E](ctx, w)
	if err != nil {
		return err
	}
	wr.world = w
	wr.hub = hub
	return nil
}

func (wr *EventWriter[E]) appendAccess(qv *QueryValidator) {
	qv.Mutable(reflect.TypeFor[eventAccess[E]]())
}

func (wr *EventWriter[E]) tryAcquire() acquireStatus { return ready() }
func (wr *EventWriter[E]) release()                  {}
func (wr *EventWriter[E]) readOnlyParam() bool       { return false }

// Send delivers one event to every registered reader.
func (wr *EventWriter[E]) Send(ctx context.Context, event E) error {
	if err := wr.hub.latch.Read(ctx); err != nil {
		return err
	}
	defer wr.hub.latch.ReadUnlock()
	for _, q := range wr.hub.queues {
		q.push(event)
	}
	return nil
}

// SendBatch delivers events in order to every registered reader.
func (wr *EventWriter[E]) SendBatch(ctx context.Context, events ...E) error {
	if err := wr.hub.latch.Read(ctx); err != nil {
		return err
	}
	defer wr.hub.latch.ReadUnlock()
	for _, q := range wr.hub.queues {
		for _, event := range events {
			q.push(event)
		}
	}
	return nil
}

// EventReader receives events of type E. Its queue is registered with the
// hub when the owning system is bound to a world, so it observes every event sent
// from then on, in order.
type EventReader[E any] struct {
	world *World
	queue *eventQueue[E]
}

func (rd *EventReader[E]) initParam(ctx context.Context, w *World, sys SystemID) error {
	hub, err := hubFor[E](ctx, w)
	if err != nil {
		return err
	}
	rd.world = w
	rd.queue = &eventQueue[E]{signal: w.signal}
	if err := hub.latch.Write(ctx); err != nil {
		return err
	}
	hub.queues = append(hub.queues, rd.queue)
	hub.latch.WriteUnlock()
	return nil
}

func (rd *EventReader[E]) appendAccess(qv *QueryValidator) {
	qv.Mutable(reflect.TypeFor[eventAccess[E]]())
}

func (rd *EventReader[E]) tryAcquire() acquireStatus { return ready() }
func (rd *EventReader[E]) release()                  {}
func (rd *EventReader[E]) readOnlyParam() bool       { return false }

// TryRead pops the oldest pending event, if any.
func (rd *EventReader[E]) TryRead() (E, bool) {
	return rd.queue.tryPop()
}

// Read blocks until an event arrives or ctx is done.
func (rd *EventReader[E]) Read(ctx context.Context) (E, error) {
	for {
		wake := rd.world.signal.Wake()
		if e, ok := rd.queue.tryPop(); ok {
			return e, nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			var zero E
			return zero, ctx.Err()
		}
	}
}

// Drain removes and returns every pending event, oldest first.
func (rd *EventReader[E]) Drain() []E {
	return rd.queue.drain()
}
