package mint

import (
	"context"
	"slices"
	"sync"
)

type pendingSnapshot struct {
	snap    Snapshot
	targets []int
}

// observerSet delivers snapshots to subscribers one at a time, in enqueue
// order, on a single drain goroutine. Callbacks run without any workflow lock
// held, so they may call back into the workflow.
type observerSet struct {
	mu        sync.Mutex
	observers map[int]func(Snapshot)
	nextID    int
	queue     []pendingSnapshot
	draining  bool
	closed    bool
	// idle is closed when the current drain run empties the queue.
	idle      chan struct{}
}

func (o *observerSet) add(fn func(Snapshot)) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.observers == nil {
		o.observers = make(map[int]func(Snapshot))
	}
	o.nextID++
	o.observers[o.nextID] = fn
	return o.nextID
}

func (o *observerSet) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observers, id)
}

// enqueue schedules snap for targets, or for every current observer when
// targets is nil. Targets are fixed at enqueue time.
func (o *observerSet) enqueue(snap Snapshot, targets []int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if targets == nil {
		targets = make([]int, 0, len(o.observers))
		for id := range o.observers {
			targets = append(targets, id)
		}
		slices.Sort(targets)
	}
	if len(targets) == 0 {
		return
	}
	o.queue = append(o.queue, pendingSnapshot{snap: snap, targets: targets})
	if !o.draining {
		o.draining = true
		o.idle = make(chan struct{})
		go o.drain()
	}
}

// close rejects later snapshots. Already queued ones are still delivered.
func (o *observerSet) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

// flush waits until every queued snapshot has been delivered. It must not be
// called from an observer callback.
func (o *observerSet) flush(ctx context.Context) error {
	for {
		o.mu.Lock()
		idle := o.idle
		o.mu.Unlock()
		if idle == nil {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (o *observerSet) drain() {
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			o.draining = false
			close(o.idle)
			o.idle = nil
			o.mu.Unlock()
			return
		}
		next := o.queue[0]
		o.queue = o.queue[1:]
		fns := make([]func(Snapshot), 0, len(next.targets))
		for _, id := range next.targets {
			if fn, ok := o.observers[id]; ok {
				fns = append(fns, fn)
			}
		}
		o.mu.Unlock()

		for _, fn := range fns {
			fn(next.snap)
		}
	}
}
