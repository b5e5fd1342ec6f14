// Package scenario assembles a complete simulation: it owns the scheduler,
// RNG, registry, mobility, channel and traffic endpoints of one run and
// exposes the setup API that configures them.
package scenario

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vanet-sim/vanet-sim/sim"
	"github.com/vanet-sim/vanet-sim/sim/channel"
	"github.com/vanet-sim/vanet-sim/sim/mobility"
	"github.com/vanet-sim/vanet-sim/sim/topology"
	"github.com/vanet-sim/vanet-sim/sim/trace"
	"github.com/vanet-sim/vanet-sim/sim/transport"
)

// Options are the run-wide settings fixed at construction.
type Options struct {
	Seed       int64
	TraceLevel trace.TraceLevel
	Prefix     string // address prefix, topology.DefaultPrefix when empty
}

// Flow is one installed client/server pair.
type Flow struct {
	Config sim.TrafficConfig
	Server *transport.Server
	Client *transport.Client
}

// SimulationContext owns every component of a single run. Setup calls must
// happen before Run; each returns an error instead of partially configuring.
type SimulationContext struct {
	RunID    string
	Seed     int64
	Sim      *sim.Simulator
	RNG      *sim.PartitionedRNG
	Metrics  *sim.Metrics
	Registry *topology.Registry
	Trace    *trace.SimulationTrace

	vehicles  *sim.VehicleConfig
	nodes     []*sim.Node
	driver    *mobility.Driver
	allocator *channel.Allocator
	demux     *transport.Demux
	flows     []*Flow

	ran       bool
	destroyed bool
}

// NewSimulationContext creates an empty context with a fresh run ID.
func NewSimulationContext(opts Options) (*SimulationContext, error) {
	if !trace.IsValidTraceLevel(string(opts.TraceLevel)) {
		return nil, sim.InvalidConfigf("unknown trace level %q", opts.TraceLevel)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = topology.DefaultPrefix
	}
	reg, err := topology.NewRegistry(prefix)
	if err != nil {
		return nil, err
	}
	metrics, err := sim.NewMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	runID := uuid.NewString()
	var st *trace.SimulationTrace
	if opts.TraceLevel != "" && opts.TraceLevel != trace.TraceLevelNone {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: opts.TraceLevel, RunID: runID})
	}
	return &SimulationContext{
		RunID:    runID,
		Seed:     opts.Seed,
		Sim:      sim.NewSimulator(metrics),
		RNG:      sim.NewPartitionedRNG(sim.NewSimulationKey(opts.Seed)),
		Metrics:  metrics,
		Registry: reg,
		Trace:    st,
	}, nil
}

func (c *SimulationContext) checkSetup(what string) error {
	if c.destroyed {
		return fmt.Errorf("%s: simulation context destroyed", what)
	}
	if c.ran {
		return fmt.Errorf("%s: simulation already ran", what)
	}
	return nil
}

// ConfigureVehicles creates count vehicles moving inside bounds at speeds in
// [speedMin, speedMax] m/s, with the default mobility tick.
func (c *SimulationContext) ConfigureVehicles(count int, bounds sim.Rect, speedMin, speedMax float64) error {
	return c.ConfigureFleet(sim.NewVehicleConfig(count, bounds, speedMin, speedMax))
}

// ConfigureFleet is ConfigureVehicles with every mobility knob exposed.
// Vehicles get IDs 0..Count-1 and sequential addresses.
func (c *SimulationContext) ConfigureFleet(cfg sim.VehicleConfig) error {
	if err := c.checkSetup("configure vehicles"); err != nil {
		return err
	}
	if c.vehicles != nil {
		return fmt.Errorf("configure vehicles: already configured with %d vehicles", c.vehicles.Count)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configure vehicles: %w", err)
	}
	if free := c.Registry.Free(); cfg.Count > free {
		return fmt.Errorf("configure vehicles: %w", sim.InvalidConfigf(
			"%d vehicles do not fit in %s, %d addresses free", cfg.Count, c.Registry.Prefix(), free))
	}

	nodes := make([]*sim.Node, cfg.Count)
	for i := range nodes {
		n := &sim.Node{ID: sim.NodeID(i)}
		if _, err := c.Registry.RegisterNode(n); err != nil {
			return fmt.Errorf("configure vehicles: %w", err)
		}
		nodes[i] = n
	}
	walk := mobility.NewRandomWalk(cfg, c.RNG.ForSubsystem(sim.SubsystemMobility), c.Metrics)
	walk.InitialPlacement(nodes)
	driver, err := mobility.NewDriver(walk, c.Sim, nodes, cfg.Tick, c.Trace)
	if err != nil {
		return fmt.Errorf("configure vehicles: %w", err)
	}
	if err := driver.Start(); err != nil {
		return fmt.Errorf("configure vehicles: %w", err)
	}

	c.vehicles = &cfg
	c.nodes = nodes
	c.driver = driver
	logrus.Infof("configured %d vehicles in [%g,%g]x[%g,%g] at %g-%g m/s",
		cfg.Count, cfg.Bounds.MinX, cfg.Bounds.MaxX, cfg.Bounds.MinY, cfg.Bounds.MaxY, cfg.SpeedMin, cfg.SpeedMax)
	return nil
}

// ConfigureChannel installs the shared channel at frequency Hz with
// bandwidth Hz and the named path-loss profile, using default link-budget
// parameters.
func (c *SimulationContext) ConfigureChannel(frequency, bandwidth float64, profile string) error {
	return c.ConfigureChannelConfig(sim.NewChannelConfig(frequency, bandwidth, profile))
}

// ConfigureChannelConfig is ConfigureChannel with every link-budget knob exposed.
func (c *SimulationContext) ConfigureChannelConfig(cfg sim.ChannelConfig) error {
	if err := c.checkSetup("configure channel"); err != nil {
		return err
	}
	if c.allocator != nil {
		return errors.New("configure channel: already configured")
	}
	alloc, err := channel.NewAllocator(cfg, c.Sim, c.Registry, c.RNG.ForSubsystem(sim.SubsystemChannel), c.Metrics, c.Trace)
	if err != nil {
		return fmt.Errorf("configure channel: %w", err)
	}
	c.demux = transport.NewDemux(c.Metrics, c.Trace)
	alloc.SetReceiver(c.demux)
	c.allocator = alloc
	logrus.Infof("configured channel %.3g GHz / %.3g MHz, profile %s",
		cfg.FrequencyHz/1e9, cfg.BandwidthHz/1e6, alloc.Link().Profile().Name)
	return nil
}

// ConfigureTraffic installs a server on tc.Server and a client on tc.Client.
// Vehicles and the channel must already be configured.
func (c *SimulationContext) ConfigureTraffic(tc sim.TrafficConfig) error {
	if err := c.checkSetup("configure traffic"); err != nil {
		return err
	}
	if c.vehicles == nil || c.allocator == nil {
		return errors.New("configure traffic: vehicles and channel must be configured first")
	}
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("configure traffic: %w", err)
	}
	for _, id := range []sim.NodeID{tc.Server, tc.Client} {
		if _, err := c.Registry.Node(id); err != nil {
			return fmt.Errorf("configure traffic: %w", err)
		}
		if c.demux.Bound(id, tc.Port) {
			return fmt.Errorf("configure traffic: port %d on node %d already bound", tc.Port, id)
		}
	}

	srv := transport.NewServer(transport.ServerConfig{
		Node:     tc.Server,
		Port:     tc.Port,
		Start:    tc.ServerStart,
		Stop:     tc.ServerStop,
		EchoAcks: tc.EchoAcks,
	}, c.Sim, c.allocator)
	cli, err := transport.NewClient(transport.ClientConfig{
		Node:       tc.Client,
		Remote:     tc.Server,
		Port:       tc.Port,
		MaxPackets: tc.PacketCount,
		Interval:   tc.Interval,
		PacketSize: tc.PacketSize,
		Start:      tc.ClientStart,
		Stop:       tc.ClientStop,
	}, c.Sim, c.allocator)
	if err != nil {
		return fmt.Errorf("configure traffic: %w", err)
	}
	if err := srv.Install(c.demux); err != nil {
		return fmt.Errorf("configure traffic: %w", err)
	}
	if err := cli.Install(c.demux); err != nil {
		srv.Uninstall(c.demux)
		return fmt.Errorf("configure traffic: %w", err)
	}
	c.flows = append(c.flows, &Flow{Config: tc, Server: srv, Client: cli})

	srvAddr, cliAddr := c.nodes[tc.Server].Address, c.nodes[tc.Client].Address
	logrus.Infof("configured flow %s -> %s:%d, %d x %dB every %s",
		cliAddr, srvAddr, tc.Port, tc.PacketCount, tc.PacketSize, tc.Interval)
	return nil
}

// Run executes the simulation until stop. It may be called once.
func (c *SimulationContext) Run(stop sim.SimTime) error {
	if err := c.checkSetup("run"); err != nil {
		return err
	}
	if c.vehicles == nil {
		return errors.New("run: no vehicles configured")
	}
	if stop < c.Sim.Now() {
		return sim.InvalidConfigf("stop time %s is before the clock %s", stop, c.Sim.Now())
	}
	if c.allocator != nil {
		c.allocator.SetHorizon(stop)
	}
	c.ran = true
	logrus.Infof("run %s: seed=%d stop=%s", c.RunID, c.Seed, stop)
	return c.Sim.Run(stop)
}

// Destroy releases all grants and pending events. It is safe to call more than once.
func (c *SimulationContext) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	if c.allocator != nil {
		c.allocator.ReleaseAll()
	}
	if c.driver != nil {
		c.driver.Stop()
	}
	c.Sim.Destroy()
}

// Nodes returns the vehicles in ID order.
func (c *SimulationContext) Nodes() []*sim.Node { return c.nodes }

// Flows returns the installed flows in configuration order.
func (c *SimulationContext) Flows() []*Flow { return c.flows }

// Allocator returns the channel allocator, nil before ConfigureChannel.
func (c *SimulationContext) Allocator() *channel.Allocator { return c.allocator }

// Stats aggregates endpoint counters over all flows.
type Stats struct {
	Sent           uint64
	Granted        uint64
	Dropped        uint64
	Received       uint64
	Closed         uint64
	Lost           uint64
	Acks           uint64
	Delivered      uint64
	Discarded      uint64
	MobilityTicks  uint64
	SimulatedUntil sim.SimTime
}

// Stats returns the current counters.
func (c *SimulationContext) Stats() Stats {
	s := Stats{SimulatedUntil: c.Sim.Now()}
	for _, f := range c.flows {
		s.Sent += f.Client.Sent()
		s.Granted += f.Client.Granted()
		s.Dropped += f.Client.Dropped()
		s.Acks += f.Client.Acks()
		s.Received += f.Server.Received()
		s.Closed += f.Server.Closed()
		s.Lost += f.Server.Lost()
	}
	if c.demux != nil {
		s.Delivered = c.demux.Delivered()
		s.Discarded = c.demux.Discarded()
	}
	if c.driver != nil {
		s.MobilityTicks = c.driver.Ticks()
	}
	return s
}
