// sim/simulator.go
package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Simulator is the core object that holds simulation time and the event loop.
// It is single-threaded: actions run one at a time on the goroutine that called Run,
// so components mutating shared state from inside actions need no locking.
type Simulator struct {
	clock   SimTime
	queue   *eventQueue
	pending map[EventID]*Event
	nextSeq EventID

	running   bool
	destroyed bool
	executed  uint64

	Metrics *Metrics
}

// NewSimulator returns an empty scheduler with the clock at 0.
func NewSimulator(metrics *Metrics) *Simulator {
	return &Simulator{
		queue:   newEventQueue(),
		pending: make(map[EventID]*Event),
		Metrics: metrics,
	}
}

// Now returns the current simulated time.
func (s *Simulator) Now() SimTime {
	return s.clock
}

// Pending returns the number of queued events.
func (s *Simulator) Pending() int {
	return s.queue.Len()
}

// Executed returns the number of events run so far.
func (s *Simulator) Executed() uint64 {
	return s.executed
}

// Schedule pushes an event into the queue. Scheduling before Now() fails with
// *InvalidScheduleError and leaves the queue untouched.
func (s *Simulator) Schedule(at SimTime, owner ComponentID, action Action) (EventID, error) {
	if s.destroyed {
		return 0, errors.New("simulator destroyed")
	}
	if action == nil {
		return 0, fmt.Errorf("nil action for %s", owner)
	}
	if at < s.clock || at < 0 {
		return 0, &InvalidScheduleError{At: at, Now: s.clock, Owner: owner}
	}
	s.nextSeq++
	ev := &Event{Time: at, Seq: s.nextSeq, Owner: owner, Action: action}
	s.queue.schedule(ev)
	s.pending[ev.Seq] = ev
	logrus.Tracef("[%s] scheduled %s event #%d at %s", s.clock, owner, ev.Seq, at)
	return ev.Seq, nil
}

// ScheduleAfter schedules action delay after Now().
func (s *Simulator) ScheduleAfter(delay SimTime, owner ComponentID, action Action) (EventID, error) {
	return s.Schedule(s.clock+delay, owner, action)
}

// Cancel withdraws a pending event. Firing is final once popped.
func (s *Simulator) Cancel(id EventID) bool {
	ev, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	if !s.queue.remove(ev) {
		return false
	}
	s.Metrics.eventCancelled(ev.Owner)
	logrus.Tracef("[%s] cancelled %s event #%d", s.clock, ev.Owner, id)
	return true
}

// Run executes events in (time, sequence) order until the queue drains or the
// next event lies beyond stop. That event is discarded and Run returns.
func (s *Simulator) Run(stop SimTime) error {
	if s.destroyed {
		return errors.New("simulator destroyed")
	}
	if s.running {
		return errors.New("simulator already running")
	}
	s.running = true
	defer func() { s.running = false }()

	for s.queue.Len() > 0 {
		ev := s.queue.popNext()
		delete(s.pending, ev.Seq)

		if ev.Time > stop {
			logrus.Debugf("[%s] discarding %s event #%d at %s beyond stop %s", s.clock, ev.Owner, ev.Seq, ev.Time, stop)
			break
		}
		if ev.Time < s.clock {
			panic(fmt.Sprintf("clock went backwards: %s < %s", ev.Time, s.clock))
		}
		s.clock = ev.Time
		s.executed++
		s.Metrics.eventExecuted(ev.Owner)
		ev.Action(s.clock)
	}
	logrus.Infof("[%s] simulation ended, %d events executed, %d pending", s.clock, s.executed, s.queue.Len())
	return nil
}

// Destroy releases all pending events without executing them. The simulator
// cannot be reused afterwards.
func (s *Simulator) Destroy() {
	s.queue.clear()
	s.pending = make(map[EventID]*Event)
	s.destroyed = true
}

// NextTime reports the time of the earliest pending event.
func (s *Simulator) NextTime() (SimTime, bool) {
	ev := s.queue.peek()
	if ev == nil {
		return 0, false
	}
	return ev.Time, true
}
