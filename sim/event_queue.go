package sim

import "container/heap"

// eventQueue implements heap.Interface with deterministic ordering.
// Order by: timestamp, then insertion sequence.
type eventQueue struct {
	events []*Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{events: make([]*Event, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *eventQueue) Len() int { return len(q.events) }

// Less implements heap.Interface
func (q *eventQueue) Less(i, j int) bool {
	ei, ej := q.events[i], q.events[j]
	if ei.Time != ej.Time {
		return ei.Time < ej.Time
	}
	return ei.Seq < ej.Seq
}

// Swap implements heap.Interface
func (q *eventQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
	q.events[i].index = i
	q.events[j].index = j
}

// Push implements heap.Interface
func (q *eventQueue) Push(x any) {
	ev := x.(*Event)
	ev.index = len(q.events)
	q.events = append(q.events, ev)
}

// Pop implements heap.Interface
func (q *eventQueue) Pop() any {
	old := q.events
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	q.events = old[0 : n-1]
	return ev
}

func (q *eventQueue) schedule(ev *Event) {
	heap.Push(q, ev)
}

// popNext removes and returns the earliest event, or nil when empty.
func (q *eventQueue) popNext() *Event {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*Event)
}

// peek returns the earliest event without removing it.
func (q *eventQueue) peek() *Event {
	if q.Len() == 0 {
		return nil
	}
	return q.events[0]
}

// remove withdraws ev if it is still queued.
func (q *eventQueue) remove(ev *Event) bool {
	if ev.index < 0 || ev.index >= len(q.events) || q.events[ev.index] != ev {
		return false
	}
	heap.Remove(q, ev.index)
	return true
}

// clear drops every queued event.
func (q *eventQueue) clear() {
	for _, ev := range q.events {
		ev.index = -1
	}
	q.events = q.events[:0]
}
