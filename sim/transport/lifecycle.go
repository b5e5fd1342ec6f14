package transport

import (
	"fmt"

	"github.com/vanet-sim/vanet-sim/sim"
)

// State is an endpoint's lifecycle phase: Idle -> Active -> Stopped.
type State int

const (
	StateIdle State = iota
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// window holds the start and stop events of an endpoint.
type window struct {
	start, stop sim.EventID
}

// cancel withdraws whichever of the two events is still pending.
func (w window) cancel(sched sim.Scheduler) {
	sched.Cancel(w.start)
	sched.Cancel(w.stop)
}

// scheduleWindow schedules the start and stop transitions of an endpoint.
// Start is scheduled first so that equal start and stop times still pass
// through Active. On error nothing stays queued.
func scheduleWindow(sched sim.Scheduler, owner sim.ComponentID, start, stop sim.SimTime, onStart, onStop sim.Action) (window, error) {
	if stop < start {
		return window{}, sim.InvalidConfigf("%s: stop %s before start %s", owner, stop, start)
	}
	startID, err := sched.Schedule(start, owner, onStart)
	if err != nil {
		return window{}, fmt.Errorf("scheduling %s start: %w", owner, err)
	}
	stopID, err := sched.Schedule(stop, owner, onStop)
	if err != nil {
		sched.Cancel(startID)
		return window{}, fmt.Errorf("scheduling %s stop: %w", owner, err)
	}
	return window{start: startID, stop: stopID}, nil
}
