// Package mobility moves vehicles inside a bounded region.
package mobility

import (
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vanet-sim/vanet-sim/sim"
)

// maxReflectionsPerStep bounds the reflect-and-continue loop in Step. A node
// needs more only if it crosses the whole region many times in one tick.
const maxReflectionsPerStep = 64

// Model computes node positions as a function of simulated time.
type Model interface {
	// InitialPlacement assigns each node a position inside bounds and an initial velocity.
	InitialPlacement(nodes []*sim.Node)
	// Step advances n by elapsed and returns the number of boundary reflections.
	Step(n *sim.Node, elapsed sim.SimTime) int
	// Bounds returns the region nodes are confined to.
	Bounds() sim.Rect
}

// RandomWalk is a 2-D random walk: constant velocity between redraws, speed
// uniform in [SpeedMin, SpeedMax], heading uniform in [0, 2π). A node hitting
// a wall reflects and draws a fresh speed and heading pointing back inside.
// Independently, every RedrawInterval of travel time it redraws both.
type RandomWalk struct {
	bounds  sim.Rect
	redraw  sim.SimTime
	speed   distuv.Uniform
	heading distuv.Uniform
	x       distuv.Uniform
	y       distuv.Uniform

	sinceRedraw map[sim.NodeID]sim.SimTime
	metrics     *sim.Metrics
}

// NewRandomWalk builds a RandomWalk drawing from rng, which must be the
// caller's dedicated mobility stream.
func NewRandomWalk(cfg sim.VehicleConfig, rng *rand.Rand, metrics *sim.Metrics) *RandomWalk {
	return &RandomWalk{
		bounds:      cfg.Bounds,
		redraw:      cfg.RedrawInterval,
		speed:       distuv.Uniform{Min: cfg.SpeedMin, Max: cfg.SpeedMax, Src: rng},
		heading:     distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rng},
		x:           distuv.Uniform{Min: cfg.Bounds.MinX, Max: cfg.Bounds.MaxX, Src: rng},
		y:           distuv.Uniform{Min: cfg.Bounds.MinY, Max: cfg.Bounds.MaxY, Src: rng},
		sinceRedraw: make(map[sim.NodeID]sim.SimTime),
		metrics:     metrics,
	}
}

// Bounds returns the confining rectangle.
func (w *RandomWalk) Bounds() sim.Rect {
	return w.bounds
}

// InitialPlacement draws a uniform position and a velocity for every node, in slice order.
func (w *RandomWalk) InitialPlacement(nodes []*sim.Node) {
	for _, n := range nodes {
		n.Position = sim.Vec2{X: w.x.Rand(), Y: w.y.Rand()}
		n.Velocity = w.drawVelocity()
		w.sinceRedraw[n.ID] = 0
		logrus.Debugf("placed node %d at (%.2f, %.2f)", n.ID, n.Position.X, n.Position.Y)
	}
}

func (w *RandomWalk) drawVelocity() sim.Vec2 {
	s := w.speed.Rand()
	theta := w.heading.Rand()
	return sim.Vec2{X: s * math.Cos(theta), Y: s * math.Sin(theta)}
}

// Step advances n by elapsed, reflecting off every wall it reaches.
func (w *RandomWalk) Step(n *sim.Node, elapsed sim.SimTime) int {
	if elapsed <= 0 {
		return 0
	}
	remaining := elapsed.Seconds()
	reflections := 0
	// travel time since the last reflection, which restarts the redraw clock
	sinceReflect := elapsed
	for remaining > 0 && reflections < maxReflectionsPerStep {
		tHit, hitX, hitY := w.timeToWall(n.Position, n.Velocity)
		if tHit >= remaining {
			n.Position = n.Position.Add(n.Velocity.Scale(remaining))
			break
		}
		n.Position = n.Position.Add(n.Velocity.Scale(tHit))
		w.clamp(n)
		remaining -= tHit
		w.reflect(n, hitX, hitY)
		reflections++
		sinceReflect = sim.Seconds(remaining)
	}
	w.clamp(n)

	w.sinceRedraw[n.ID] += sinceReflect
	if w.sinceRedraw[n.ID] >= w.redraw {
		n.Velocity = w.drawVelocity()
		w.sinceRedraw[n.ID] = 0
	}
	for i := 0; i < reflections; i++ {
		w.metrics.RecordReflection()
	}
	return reflections
}

// timeToWall returns the travel time until p, moving at v, reaches a wall,
// and which axes are hit at that time. Nodes on a wall and moving outward
// hit it after zero time.
func (w *RandomWalk) timeToWall(p, v sim.Vec2) (float64, bool, bool) {
	tx := axisTime(p.X, v.X, w.bounds.MinX, w.bounds.MaxX)
	ty := axisTime(p.Y, v.Y, w.bounds.MinY, w.bounds.MaxY)
	t := math.Min(tx, ty)
	return t, tx == t && !math.IsInf(t, 1), ty == t && !math.IsInf(t, 1)
}

func axisTime(pos, vel, lo, hi float64) float64 {
	switch {
	case vel > 0:
		return math.Max(0, (hi-pos)/vel)
	case vel < 0:
		return math.Max(0, (lo-pos)/vel)
	default:
		return math.Inf(1)
	}
}

// reflect draws a new velocity pointing back inside: the component normal to
// the wall just hit is flipped inward, and any component whose coordinate
// already lies on a wall keeps pointing away from it.
func (w *RandomWalk) reflect(n *sim.Node, hitX, hitY bool) {
	old := n.Velocity
	v := w.drawVelocity()
	v.X = inward(v.X, n.Position.X, old.X, hitX, w.bounds.MinX, w.bounds.MaxX)
	v.Y = inward(v.Y, n.Position.Y, old.Y, hitY, w.bounds.MinY, w.bounds.MaxY)
	n.Velocity = v
	w.sinceRedraw[n.ID] = 0
	logrus.Tracef("node %d reflected at (%.2f, %.2f)", n.ID, n.Position.X, n.Position.Y)
}

// inward fixes the sign of one velocity component. A hit wall is identified
// by the direction of travel; otherwise a coordinate on a wall decides.
func inward(v, pos, prev float64, hit bool, lo, hi float64) float64 {
	switch {
	case hit && prev > 0, !hit && pos >= hi:
		return -math.Abs(v)
	case hit && prev < 0, !hit && pos <= lo:
		return math.Abs(v)
	default:
		return v
	}
}

// clamp snaps floating-point overshoot back onto the boundary.
func (w *RandomWalk) clamp(n *sim.Node) {
	n.Position.X = math.Min(math.Max(n.Position.X, w.bounds.MinX), w.bounds.MaxX)
	n.Position.Y = math.Min(math.Max(n.Position.Y, w.bounds.MinY), w.bounds.MaxY)
}
