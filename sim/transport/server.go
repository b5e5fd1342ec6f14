package transport

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vanet-sim/vanet-sim/sim"
	"github.com/vanet-sim/vanet-sim/sim/channel"
)

// ackSizeBytes is the payload size of an echo acknowledgement.
const ackSizeBytes = 64

// ServerConfig places a server on a node and port for a time window.
type ServerConfig struct {
	Node     sim.NodeID
	Port     uint16
	Start    sim.SimTime
	Stop     sim.SimTime
	EchoAcks bool // answer every accepted packet with an ack
}

// Server counts packets received while Active. Packets arriving outside the
// window are discarded as closed. Per-sender sequence tracking rejects
// duplicates and yields a loss estimate from gaps.
type Server struct {
	cfg    ServerConfig
	sched  sim.Scheduler
	alloc  channel.ChannelAllocator
	owner  sim.ComponentID
	state  State
	window window

	received    uint64
	closed      uint64
	duplicates  uint64
	acksSent    uint64
	acksDropped uint64
	senders     map[sim.NodeID]*seqTracker
}

type seqTracker struct {
	seen map[uint64]struct{}
	max  uint64
}

// NewServer creates an Idle server. alloc is used only for echo acks.
func NewServer(cfg ServerConfig, sched sim.Scheduler, alloc channel.ChannelAllocator) *Server {
	return &Server{
		cfg:     cfg,
		sched:   sched,
		alloc:   alloc,
		owner:   sim.ComponentID(fmt.Sprintf("server/%d:%d", cfg.Node, cfg.Port)),
		senders: make(map[sim.NodeID]*seqTracker),
	}
}

// Install binds the server on d and schedules its start and stop.
func (s *Server) Install(d *Demux) error {
	if err := d.Bind(s.cfg.Node, s.cfg.Port, s); err != nil {
		return err
	}
	w, err := scheduleWindow(s.sched, s.owner, s.cfg.Start, s.cfg.Stop, s.onStart, s.onStop)
	if err != nil {
		d.Unbind(s.cfg.Node, s.cfg.Port)
		return err
	}
	s.window = w
	return nil
}

// Uninstall reverses Install: it unbinds the server and cancels its pending
// start and stop.
func (s *Server) Uninstall(d *Demux) {
	d.Unbind(s.cfg.Node, s.cfg.Port)
	s.window.cancel(s.sched)
	s.window = window{}
}

func (s *Server) onStart(now sim.SimTime) {
	s.state = StateActive
	logrus.Debugf("[%s] %s listening", now, s.owner)
}

func (s *Server) onStop(now sim.SimTime) {
	s.state = StateStopped
	logrus.Debugf("[%s] %s stopped after %d packets", now, s.owner, s.received)
}

// Receive implements Endpoint.
func (s *Server) Receive(pkt *sim.Packet, now sim.SimTime) error {
	if s.state != StateActive {
		s.closed++
		return ErrClosed
	}
	if pkt.Kind != sim.PacketData {
		return ErrUnexpected
	}
	tr, ok := s.senders[pkt.Sender]
	if !ok {
		tr = &seqTracker{seen: make(map[uint64]struct{})}
		s.senders[pkt.Sender] = tr
	}
	if _, dup := tr.seen[pkt.Seq]; dup {
		s.duplicates++
		return ErrDuplicate
	}
	tr.seen[pkt.Seq] = struct{}{}
	if pkt.Seq > tr.max {
		tr.max = pkt.Seq
	}
	s.received++
	logrus.Tracef("[%s] %s received %s", now, s.owner, pkt)

	if s.cfg.EchoAcks && s.alloc != nil {
		s.echo(pkt, now)
	}
	return nil
}

func (s *Server) echo(pkt *sim.Packet, now sim.SimTime) {
	ack := &sim.Packet{
		Sender:    s.cfg.Node,
		Receiver:  pkt.Sender,
		Port:      pkt.Port,
		SizeBytes: ackSizeBytes,
		SendTime:  now,
		Seq:       pkt.Seq,
		Kind:      sim.PacketAck,
	}
	if _, err := s.alloc.RequestTransmission(ack, now); err != nil {
		s.acksDropped++
		return
	}
	s.acksSent++
}

// State returns the lifecycle phase.
func (s *Server) State() State { return s.state }

// Received returns the number of distinct packets accepted.
func (s *Server) Received() uint64 { return s.received }

// Closed returns the number of packets that arrived outside the active window.
func (s *Server) Closed() uint64 { return s.closed }

// Duplicates returns the number of rejected repeats.
func (s *Server) Duplicates() uint64 { return s.duplicates }

// AcksSent returns the number of acks granted by the channel.
func (s *Server) AcksSent() uint64 { return s.acksSent }

// AcksDropped returns the number of acks the channel refused.
func (s *Server) AcksDropped() uint64 { return s.acksDropped }

// Lost estimates packets missing from each sender's sequence space: for a
// sender whose highest seen seq is m, m+1 were sent at least.
func (s *Server) Lost() uint64 {
	var lost uint64
	for _, tr := range s.senders {
		lost += tr.max + 1 - uint64(len(tr.seen))
	}
	return lost
}
