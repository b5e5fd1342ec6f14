package channel

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vanet-sim/vanet-sim/sim"
	"github.com/vanet-sim/vanet-sim/sim/trace"
)

// Owner is the ComponentID of delivery and release events.
const Owner sim.ComponentID = "channel"

// ChannelAllocator decides whether a packet gets channel resources and, if
// so, when it arrives.
type ChannelAllocator interface {
	RequestTransmission(pkt *sim.Packet, at sim.SimTime) (*Grant, error)
}

// Receiver consumes packets whose delivery event fired.
type Receiver interface {
	Deliver(pkt *sim.Packet, now sim.SimTime)
}

// NodeSource resolves node IDs to live nodes. topology.Registry implements it.
type NodeSource interface {
	Node(id sim.NodeID) (*sim.Node, error)
}

// Grant is one accepted transmission. The sender is busy on
// [Start, Start+Duration); the receiver gets the packet Propagation later.
type Grant struct {
	ID             uint64
	From           sim.NodeID
	To             sim.NodeID
	Seq            uint64
	Start          sim.SimTime
	Duration       sim.SimTime // serialization delay
	Propagation    sim.SimTime
	BandwidthShare float64
	SuccessProb    float64
	Distance       float64

	cell cellKey
}

// End is the time the last bit leaves the sender.
func (g *Grant) End() sim.SimTime { return g.Start + g.Duration }

// DeliverAt is the time the receiver gets the packet.
func (g *Grant) DeliverAt() sim.SimTime { return g.End() + g.Propagation }

type cellKey struct{ X, Y int64 }

// Allocator is the single shared-channel model. It keeps a table of active
// grants, a per-sender busy horizon for half-duplex, and draws transmission
// success from its own RNG stream.
type Allocator struct {
	link     *Link
	cellSize float64
	sched    sim.Scheduler
	nodes    NodeSource
	receiver Receiver
	rng      *rand.Rand
	metrics  *sim.Metrics
	trace    *trace.SimulationTrace

	horizon   sim.SimTime
	nextID    uint64
	active    map[uint64]*Grant
	releases  map[uint64]sim.EventID
	busyUntil map[sim.NodeID]sim.SimTime
	history   []Grant
}

// NewAllocator builds an allocator for cfg. rng must be the dedicated
// channel stream; metrics and st may be nil.
func NewAllocator(cfg sim.ChannelConfig, sched sim.Scheduler, nodes NodeSource, rng *rand.Rand, metrics *sim.Metrics, st *trace.SimulationTrace) (*Allocator, error) {
	link, err := NewLink(cfg)
	if err != nil {
		return nil, err
	}
	if sched == nil || nodes == nil || rng == nil {
		return nil, fmt.Errorf("channel allocator needs a scheduler, node source and rng")
	}
	return &Allocator{
		link:      link,
		cellSize:  cfg.CellSize,
		sched:     sched,
		nodes:     nodes,
		rng:       rng,
		metrics:   metrics,
		trace:     st,
		horizon:   sim.SimTime(math.MaxInt64),
		active:    make(map[uint64]*Grant),
		releases:  make(map[uint64]sim.EventID),
		busyUntil: make(map[sim.NodeID]sim.SimTime),
	}, nil
}

// SetReceiver installs the sink for delivered packets.
func (a *Allocator) SetReceiver(r Receiver) { a.receiver = r }

// SetHorizon sets the stop time. Grants that would not deliver by it are dropped.
func (a *Allocator) SetHorizon(stop sim.SimTime) { a.horizon = stop }

// Link exposes the link-budget model.
func (a *Allocator) Link() *Link { return a.link }

// BusyUntil returns the time node finishes its last granted transmission.
func (a *Allocator) BusyUntil(node sim.NodeID) sim.SimTime { return a.busyUntil[node] }

// RequestTransmission evaluates pkt for transmission at time at. On success it
// schedules the delivery and the grant release and returns the grant. Losses
// return *sim.TransmissionDroppedError; unknown endpoints return the node
// source's error.
func (a *Allocator) RequestTransmission(pkt *sim.Packet, at sim.SimTime) (*Grant, error) {
	if now := a.sched.Now(); at < now {
		at = now
	}
	from, err := a.nodes.Node(pkt.Sender)
	if err != nil {
		a.drop(pkt, at, sim.DropUnreachable, 0)
		return nil, fmt.Errorf("sender of %s: %w", pkt, err)
	}
	to, err := a.nodes.Node(pkt.Receiver)
	if err != nil {
		a.drop(pkt, at, sim.DropUnreachable, 0)
		return nil, fmt.Errorf("receiver of %s: %w", pkt, err)
	}

	d := from.Position.DistanceTo(to.Position)
	cell := a.cellOf(from.Position)
	contenders := a.contenders(cell)
	prob := a.link.SuccessProbability(d, contenders)

	start := at
	if busy := a.busyUntil[pkt.Sender]; busy > start {
		start = busy
	}
	share := BandwidthShare(contenders)
	g := &Grant{
		From:           pkt.Sender,
		To:             pkt.Receiver,
		Seq:            pkt.Seq,
		Start:          start,
		Duration:       a.link.SerializationDelay(pkt.SizeBytes, d, share),
		Propagation:    PropagationDelay(d),
		BandwidthShare: share,
		SuccessProb:    prob,
		Distance:       d,
		cell:           cell,
	}
	// A grant must complete, delivery included, by the horizon.
	if start >= a.horizon || g.DeliverAt() > a.horizon {
		return nil, a.drop(pkt, at, sim.DropHorizon, prob)
	}
	draw := distuv.Bernoulli{P: prob, Src: a.rng}
	if draw.Rand() == 0 {
		return nil, a.drop(pkt, at, sim.DropSignal, prob)
	}
	a.nextID++
	g.ID = a.nextID

	releaseID, err := a.sched.Schedule(g.End(), Owner, func(sim.SimTime) { a.release(g.ID) })
	if err != nil {
		return nil, fmt.Errorf("scheduling release of grant %d: %w", g.ID, err)
	}
	if _, err := a.sched.Schedule(g.DeliverAt(), Owner, func(now sim.SimTime) { a.deliver(pkt, now) }); err != nil {
		a.sched.Cancel(releaseID)
		return nil, fmt.Errorf("scheduling delivery of grant %d: %w", g.ID, err)
	}

	a.active[g.ID] = g
	a.releases[g.ID] = releaseID
	a.busyUntil[pkt.Sender] = g.End()
	a.history = append(a.history, *g)
	a.metrics.RecordTransmission(sim.OutcomeGranted, "")
	a.metrics.SetActiveGrants(len(a.active))
	a.trace.RecordTransmission(trace.TransmissionRecord{
		Clock:     int64(g.Start),
		Sender:    int(pkt.Sender),
		Receiver:  int(pkt.Receiver),
		Seq:       pkt.Seq,
		Kind:      string(pkt.Kind),
		SizeBytes: pkt.SizeBytes,
		SendClock: int64(pkt.SendTime),
		Outcome:   trace.OutcomeGranted,
		DeliverAt: int64(g.DeliverAt()),
		Prob:      prob,
	})
	logrus.Debugf("[%s] grant %d: %s start=%s ser=%s prop=%s share=%.2f p=%.3f",
		at, g.ID, pkt, g.Start, g.Duration, g.Propagation, share, prob)
	return g, nil
}

func (a *Allocator) drop(pkt *sim.Packet, at sim.SimTime, reason sim.DropReason, prob float64) error {
	a.metrics.RecordTransmission(sim.OutcomeDropped, reason)
	a.trace.RecordTransmission(trace.TransmissionRecord{
		Clock:     int64(at),
		Sender:    int(pkt.Sender),
		Receiver:  int(pkt.Receiver),
		Seq:       pkt.Seq,
		Kind:      string(pkt.Kind),
		SizeBytes: pkt.SizeBytes,
		SendClock: int64(pkt.SendTime),
		Outcome:   trace.OutcomeDropped,
		Reason:    string(reason),
		Prob:      prob,
	})
	logrus.Debugf("[%s] dropped %s: %s (p=%.3f)", at, pkt, reason, prob)
	return &sim.TransmissionDroppedError{
		Sender:      pkt.Sender,
		Receiver:    pkt.Receiver,
		Seq:         pkt.Seq,
		Reason:      reason,
		SuccessProb: prob,
	}
}

func (a *Allocator) deliver(pkt *sim.Packet, now sim.SimTime) {
	if a.receiver == nil {
		logrus.Warnf("[%s] no receiver installed, %s lost", now, pkt)
		return
	}
	a.receiver.Deliver(pkt, now)
}

func (a *Allocator) release(id uint64) {
	delete(a.active, id)
	delete(a.releases, id)
	a.metrics.SetActiveGrants(len(a.active))
}

func (a *Allocator) cellOf(p sim.Vec2) cellKey {
	return cellKey{
		X: int64(math.Floor(p.X / a.cellSize)),
		Y: int64(math.Floor(p.Y / a.cellSize)),
	}
}

func (a *Allocator) contenders(cell cellKey) int {
	n := 0
	for _, g := range a.active {
		if g.cell == cell {
			n++
		}
	}
	return n
}

// ActiveGrants returns copies of the grants still holding the channel, by ID.
func (a *Allocator) ActiveGrants() []Grant {
	out := make([]Grant, 0, len(a.active))
	for _, g := range a.active {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// History returns every grant issued, in issue order.
func (a *Allocator) History() []Grant {
	return a.history
}

// ReleaseAll cancels pending releases and empties the grant table. It
// returns the number of grants released. Deliveries already scheduled are
// left to the scheduler's own teardown.
func (a *Allocator) ReleaseAll() int {
	n := len(a.active)
	for id, ev := range a.releases {
		a.sched.Cancel(ev)
		delete(a.releases, id)
	}
	clear(a.active)
	clear(a.busyUntil)
	a.metrics.SetActiveGrants(0)
	if n > 0 {
		logrus.Debugf("released %d outstanding grants", n)
	}
	return n
}
