package sim

// ComponentID names the component that owns an event, e.g. "mobility" or "client/1:8080".
type ComponentID string

// EventID is the handle returned by Schedule. It doubles as the insertion
// sequence number, so it is unique and increasing within one Simulator.
type EventID uint64

// Action is the work bound to an event. It receives the clock value at
// which it executes and may schedule further events.
type Action func(now SimTime)

// Event is a scheduled unit of work bound to a SimTime.
// Ordering: Time, then Seq (FIFO among equal times).
type Event struct {
	Time   SimTime
	Seq    EventID
	Owner  ComponentID
	Action Action

	// index is maintained by the heap so the event can be removed in place.
	index int
}

// Scheduler is the view of the event loop that components depend on.
// Components never pop events; only the owning Simulator runs them.
type Scheduler interface {
	// Now returns the current simulated time.
	Now() SimTime
	// Schedule enqueues action to run at the absolute time at.
	Schedule(at SimTime, owner ComponentID, action Action) (EventID, error)
	// ScheduleAfter enqueues action to run delay after Now().
	ScheduleAfter(delay SimTime, owner ComponentID, action Action) (EventID, error)
	// Cancel withdraws a pending event. It reports whether the event was still pending.
	Cancel(id EventID) bool
}
