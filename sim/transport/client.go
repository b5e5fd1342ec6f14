package transport

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vanet-sim/vanet-sim/sim"
	"github.com/vanet-sim/vanet-sim/sim/channel"
)

// ClientConfig describes a periodic sender.
type ClientConfig struct {
	Node       sim.NodeID
	Remote     sim.NodeID
	Port       uint16
	MaxPackets int
	Interval   sim.SimTime
	PacketSize int
	Start      sim.SimTime
	Stop       sim.SimTime
}

// Validate rejects empty or non-periodic flows.
func (c ClientConfig) Validate() error {
	if c.MaxPackets <= 0 {
		return sim.InvalidConfigf("client max packets must be positive, got %d", c.MaxPackets)
	}
	if c.Interval <= 0 {
		return sim.InvalidConfigf("client interval must be positive, got %s", c.Interval)
	}
	if c.PacketSize <= 0 {
		return sim.InvalidConfigf("client packet size must be positive, got %d", c.PacketSize)
	}
	return nil
}

// Client sends a packet when it starts and then every Interval, as long as
// the send time is before Stop and fewer than MaxPackets have been sent.
// Each fire schedules the next one; Stop cancels it.
type Client struct {
	cfg   ClientConfig
	sched sim.Scheduler
	alloc channel.ChannelAllocator
	owner sim.ComponentID
	state State

	window  window
	next    sim.EventID
	pending bool

	sent    uint64
	granted uint64
	dropped uint64
	acks    uint64
}

// NewClient creates an Idle client.
func NewClient(cfg ClientConfig, sched sim.Scheduler, alloc channel.ChannelAllocator) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:   cfg,
		sched: sched,
		alloc: alloc,
		owner: sim.ComponentID(fmt.Sprintf("client/%d:%d", cfg.Node, cfg.Port)),
	}, nil
}

// Install binds the client for acks on d and schedules its start and stop.
func (c *Client) Install(d *Demux) error {
	if err := d.Bind(c.cfg.Node, c.cfg.Port, c); err != nil {
		return err
	}
	w, err := scheduleWindow(c.sched, c.owner, c.cfg.Start, c.cfg.Stop, c.onStart, c.onStop)
	if err != nil {
		d.Unbind(c.cfg.Node, c.cfg.Port)
		return err
	}
	c.window = w
	return nil
}

// Uninstall reverses Install: it unbinds the client and cancels its window
// and any pending send.
func (c *Client) Uninstall(d *Demux) {
	d.Unbind(c.cfg.Node, c.cfg.Port)
	c.window.cancel(c.sched)
	c.window = window{}
	if c.pending {
		c.sched.Cancel(c.next)
		c.pending = false
	}
}

func (c *Client) onStart(now sim.SimTime) {
	c.state = StateActive
	logrus.Debugf("[%s] %s started", now, c.owner)
	c.fire(now)
}

func (c *Client) onStop(now sim.SimTime) {
	c.state = StateStopped
	if c.pending {
		c.sched.Cancel(c.next)
		c.pending = false
	}
	logrus.Debugf("[%s] %s stopped: sent=%d granted=%d dropped=%d", now, c.owner, c.sent, c.granted, c.dropped)
}

func (c *Client) fire(now sim.SimTime) {
	c.pending = false
	if c.state != StateActive || now >= c.cfg.Stop || c.sent >= uint64(c.cfg.MaxPackets) {
		return
	}
	pkt := &sim.Packet{
		Sender:    c.cfg.Node,
		Receiver:  c.cfg.Remote,
		Port:      c.cfg.Port,
		SizeBytes: c.cfg.PacketSize,
		SendTime:  now,
		Seq:       c.sent,
		Kind:      sim.PacketData,
	}
	c.sent++
	_, err := c.alloc.RequestTransmission(pkt, now)
	switch {
	case err == nil:
		c.granted++
	case errors.Is(err, sim.ErrTransmissionDropped), errors.Is(err, sim.ErrUnknownAddress):
		c.dropped++
	default:
		panic(fmt.Sprintf("%s: transmission request failed: %v", c.owner, err))
	}

	at := now + c.cfg.Interval
	if c.sent >= uint64(c.cfg.MaxPackets) || at >= c.cfg.Stop {
		return
	}
	id, err := c.sched.Schedule(at, c.owner, c.fire)
	if err != nil {
		panic(err)
	}
	c.next = id
	c.pending = true
}

// Receive implements Endpoint; only acks are expected.
func (c *Client) Receive(pkt *sim.Packet, now sim.SimTime) error {
	if pkt.Kind != sim.PacketAck {
		return ErrUnexpected
	}
	c.acks++
	return nil
}

// State returns the lifecycle phase.
func (c *Client) State() State { return c.state }

// Sent returns the number of transmission attempts.
func (c *Client) Sent() uint64 { return c.sent }

// Granted returns the number of attempts the channel accepted.
func (c *Client) Granted() uint64 { return c.granted }

// Dropped returns the number of attempts the channel refused.
func (c *Client) Dropped() uint64 { return c.dropped }

// Acks returns the number of acknowledgements received.
func (c *Client) Acks() uint64 { return c.acks }

// ExpectedAttempts is min(MaxPackets, ceil((Stop-Start)/Interval)), the
// number of fires that land strictly before Stop.
func (c ClientConfig) ExpectedAttempts() int {
	if c.Stop <= c.Start {
		return 0
	}
	span := c.Stop - c.Start
	n := int((span + c.Interval - 1) / c.Interval)
	return min(n, c.MaxPackets)
}
