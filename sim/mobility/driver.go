package mobility

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vanet-sim/vanet-sim/sim"
	"github.com/vanet-sim/vanet-sim/sim/trace"
)

// Owner is the ComponentID of mobility tick events.
const Owner sim.ComponentID = "mobility"

// Driver re-invokes a Model on a fixed tick for every node. Each tick is an
// event that schedules the next one, so the walk lasts as long as the run.
type Driver struct {
	model Model
	sched sim.Scheduler
	nodes []*sim.Node
	tick  sim.SimTime
	trace *trace.SimulationTrace

	last    sim.SimTime
	next    sim.EventID
	running bool
	ticks   uint64
}

// NewDriver creates a Driver stepping nodes (in slice order) every tick.
func NewDriver(model Model, sched sim.Scheduler, nodes []*sim.Node, tick sim.SimTime, st *trace.SimulationTrace) (*Driver, error) {
	if tick <= 0 {
		return nil, sim.InvalidConfigf("mobility tick must be positive, got %s", tick)
	}
	return &Driver{model: model, sched: sched, nodes: nodes, tick: tick, trace: st}, nil
}

// Start records the current positions and schedules the first tick.
func (d *Driver) Start() error {
	if d.running {
		return fmt.Errorf("mobility driver already started")
	}
	d.running = true
	d.last = d.sched.Now()
	d.snapshot(d.last)
	id, err := d.sched.Schedule(d.last+d.tick, Owner, d.onTick)
	if err != nil {
		return fmt.Errorf("scheduling first mobility tick: %w", err)
	}
	d.next = id
	return nil
}

// Stop cancels the pending tick. Positions freeze where they are.
func (d *Driver) Stop() {
	if !d.running {
		return
	}
	d.running = false
	d.sched.Cancel(d.next)
}

// Ticks returns the number of ticks executed.
func (d *Driver) Ticks() uint64 {
	return d.ticks
}

func (d *Driver) onTick(now sim.SimTime) {
	elapsed := now - d.last
	for _, n := range d.nodes {
		d.model.Step(n, elapsed)
		if !d.model.Bounds().Contains(n.Position) {
			panic(fmt.Sprintf("node %d left bounds at %s: %+v", n.ID, now, n.Position))
		}
	}
	d.last = now
	d.ticks++
	d.snapshot(now)

	id, err := d.sched.Schedule(now+d.tick, Owner, d.onTick)
	if err != nil {
		// Scheduling forward from inside an action cannot fail unless the kernel is broken.
		panic(err)
	}
	d.next = id
	logrus.Tracef("[%s] mobility tick %d", now, d.ticks)
}

func (d *Driver) snapshot(now sim.SimTime) {
	for _, n := range d.nodes {
		d.trace.RecordPosition(trace.PositionRecord{
			Clock:  int64(now),
			NodeID: int(n.ID),
			X:      n.Position.X,
			Y:      n.Position.Y,
		})
	}
}
