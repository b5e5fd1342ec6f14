// Package transport implements UDP-style endpoints on top of the channel:
// a port demultiplexer, a counting server and a periodic client.
package transport

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vanet-sim/vanet-sim/sim"
	"github.com/vanet-sim/vanet-sim/sim/trace"
)

// Discard reasons returned by Endpoint.Receive.
var (
	ErrNotListening = errors.New("no endpoint bound")
	ErrClosed       = errors.New("endpoint not active")
	ErrDuplicate    = errors.New("duplicate sequence number")
	ErrUnexpected   = errors.New("unexpected packet kind")
)

// Endpoint consumes packets delivered to its (node, port). A non-nil error
// means the packet was discarded.
type Endpoint interface {
	Receive(pkt *sim.Packet, now sim.SimTime) error
}

type binding struct {
	node sim.NodeID
	port uint16
}

// Demux routes channel deliveries to the endpoint bound at the packet's
// receiver and port. It implements channel.Receiver.
type Demux struct {
	endpoints map[binding]Endpoint
	metrics   *sim.Metrics
	trace     *trace.SimulationTrace

	delivered uint64
	discarded uint64
}

// NewDemux creates an empty demultiplexer. metrics and st may be nil.
func NewDemux(metrics *sim.Metrics, st *trace.SimulationTrace) *Demux {
	return &Demux{
		endpoints: make(map[binding]Endpoint),
		metrics:   metrics,
		trace:     st,
	}
}

// Bind attaches ep to (node, port). Each pair can be bound once.
func (d *Demux) Bind(node sim.NodeID, port uint16, ep Endpoint) error {
	b := binding{node, port}
	if _, taken := d.endpoints[b]; taken {
		return fmt.Errorf("port %d on node %d already bound", port, node)
	}
	d.endpoints[b] = ep
	return nil
}

// Bound reports whether (node, port) already has an endpoint.
func (d *Demux) Bound(node sim.NodeID, port uint16) bool {
	_, taken := d.endpoints[binding{node, port}]
	return taken
}

// Unbind detaches whatever endpoint is bound at (node, port).
func (d *Demux) Unbind(node sim.NodeID, port uint16) {
	delete(d.endpoints, binding{node, port})
}

// Deliver hands pkt to its endpoint and records the outcome.
func (d *Demux) Deliver(pkt *sim.Packet, now sim.SimTime) {
	var err error
	if ep, ok := d.endpoints[binding{pkt.Receiver, pkt.Port}]; ok {
		err = ep.Receive(pkt, now)
	} else {
		err = ErrNotListening
	}

	rec := trace.TransmissionRecord{
		Clock:     int64(now),
		Sender:    int(pkt.Sender),
		Receiver:  int(pkt.Receiver),
		Seq:       pkt.Seq,
		Kind:      string(pkt.Kind),
		SizeBytes: pkt.SizeBytes,
		SendClock: int64(pkt.SendTime),
		Outcome:   trace.OutcomeDelivered,
	}
	if err != nil {
		d.discarded++
		rec.Outcome = trace.OutcomeDiscarded
		rec.Reason = discardReason(err)
		logrus.Debugf("[%s] discarded %s: %v", now, pkt, err)
	} else {
		d.delivered++
	}
	d.metrics.RecordDelivery(pkt.Kind, err == nil)
	d.trace.RecordTransmission(rec)
}

// Delivered returns the number of packets endpoints accepted.
func (d *Demux) Delivered() uint64 { return d.delivered }

// Discarded returns the number of packets that arrived but were not accepted.
func (d *Demux) Discarded() uint64 { return d.discarded }

func discardReason(err error) string {
	switch {
	case errors.Is(err, ErrNotListening):
		return "not-listening"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	default:
		return "rejected"
	}
}
