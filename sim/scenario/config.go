package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vanet-sim/vanet-sim/sim"
	"github.com/vanet-sim/vanet-sim/sim/channel"
	"github.com/vanet-sim/vanet-sim/sim/topology"
	"github.com/vanet-sim/vanet-sim/sim/trace"
)

// Config is the YAML scenario file. Times are in seconds, frequencies in Hz.
// All sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Seed        int64          `yaml:"seed"`
	StopSeconds float64        `yaml:"stop_seconds"`
	Network     NetworkConfig  `yaml:"network"`
	Vehicles    VehiclesConfig `yaml:"vehicles"`
	Channel     ChannelSection `yaml:"channel"`
	Traffic     []FlowConfig   `yaml:"traffic"`
	Trace       TraceSection   `yaml:"trace"`
}

type NetworkConfig struct {
	Prefix string `yaml:"prefix"`
}

type BoundsConfig struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

type VehiclesConfig struct {
	Count         int          `yaml:"count"`
	Bounds        BoundsConfig `yaml:"bounds"`
	SpeedMin      float64      `yaml:"speed_min"`
	SpeedMax      float64      `yaml:"speed_max"`
	TickSeconds   float64      `yaml:"tick_seconds"`
	RedrawSeconds float64      `yaml:"redraw_seconds"`
}

type ChannelSection struct {
	FrequencyHz       float64 `yaml:"frequency_hz"`
	BandwidthHz       float64 `yaml:"bandwidth_hz"`
	Profile           string  `yaml:"profile"`
	TxPowerDBm        float64 `yaml:"tx_power_dbm"`
	AntennaGainDB     float64 `yaml:"antenna_gain_db"`
	NoiseFigureDB     float64 `yaml:"noise_figure_db"`
	SNRThresholdDB    float64 `yaml:"snr_threshold_db"`
	SNRScaleDB        float64 `yaml:"snr_scale_db"`
	ContentionPenalty float64 `yaml:"contention_penalty"`
	CellSize          float64 `yaml:"cell_size"`
	MaxSpectralEff    float64 `yaml:"max_spectral_efficiency"`
}

type FlowConfig struct {
	Server             int     `yaml:"server"`
	Client             int     `yaml:"client"`
	Port               uint16  `yaml:"port"`
	Packets            int     `yaml:"packets"`
	IntervalSeconds    float64 `yaml:"interval_seconds"`
	PacketSize         int     `yaml:"packet_size"`
	ServerStartSeconds float64 `yaml:"server_start_seconds"`
	ServerStopSeconds  float64 `yaml:"server_stop_seconds"`
	ClientStartSeconds float64 `yaml:"client_start_seconds"`
	ClientStopSeconds  float64 `yaml:"client_stop_seconds"`
	EchoAcks           bool    `yaml:"echo_acks"`
}

type TraceSection struct {
	Level   string `yaml:"level"`
	JSONOut string `yaml:"json_out"`
	AnimOut string `yaml:"anim_out"`
}

// DefaultConfig is the reference highway scenario: ten vehicles in a
// 500 m square, a 28 GHz UMa channel and one client streaming to node 0.
func DefaultConfig() Config {
	ch := sim.NewChannelConfig(28e9, 100e6, "UMa")
	return Config{
		Seed:        42,
		StopSeconds: 30,
		Network:     NetworkConfig{Prefix: "10.1.1.0/24"},
		Vehicles: VehiclesConfig{
			Count:         10,
			Bounds:        BoundsConfig{MinX: 0, MaxX: 500, MinY: 0, MaxY: 500},
			SpeedMin:      10,
			SpeedMax:      20,
			TickSeconds:   0.1,
			RedrawSeconds: 1,
		},
		Channel: ChannelSection{
			FrequencyHz:       ch.FrequencyHz,
			BandwidthHz:       ch.BandwidthHz,
			Profile:           ch.Profile,
			TxPowerDBm:        ch.TxPowerDBm,
			AntennaGainDB:     ch.AntennaGainDB,
			NoiseFigureDB:     ch.NoiseFigureDB,
			SNRThresholdDB:    ch.SNRThresholdDB,
			SNRScaleDB:        ch.SNRScaleDB,
			ContentionPenalty: ch.ContentionPenalty,
			CellSize:          ch.CellSize,
			MaxSpectralEff:    ch.MaxSpectralEff,
		},
		Traffic: []FlowConfig{{
			Server:             0,
			Client:             1,
			Port:               8080,
			Packets:            100,
			IntervalSeconds:    0.5,
			PacketSize:         1024,
			ServerStartSeconds: 1,
			ServerStopSeconds:  30,
			ClientStartSeconds: 2,
			ClientStopSeconds:  30,
		}},
		Trace: TraceSection{Level: string(trace.TraceLevelNone)},
	}
}

// LoadConfig reads a scenario file. Values in the file overlay DefaultConfig;
// a traffic list in the file replaces the default flow.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	cfg, err := ParseConfig(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a scenario with strict field checking: unknown keys are errors.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Stop returns the simulation stop time.
func (c Config) Stop() sim.SimTime { return sim.Seconds(c.StopSeconds) }

// VehicleConfig converts the vehicles section.
func (c Config) VehicleConfig() sim.VehicleConfig {
	v := c.Vehicles
	return sim.VehicleConfig{
		Count:          v.Count,
		Bounds:         sim.Rect{MinX: v.Bounds.MinX, MaxX: v.Bounds.MaxX, MinY: v.Bounds.MinY, MaxY: v.Bounds.MaxY},
		SpeedMin:       v.SpeedMin,
		SpeedMax:       v.SpeedMax,
		Tick:           sim.Seconds(v.TickSeconds),
		RedrawInterval: sim.Seconds(v.RedrawSeconds),
	}
}

// ChannelConfig converts the channel section.
func (c Config) ChannelConfig() sim.ChannelConfig {
	ch := c.Channel
	return sim.ChannelConfig{
		FrequencyHz:       ch.FrequencyHz,
		BandwidthHz:       ch.BandwidthHz,
		Profile:           ch.Profile,
		TxPowerDBm:        ch.TxPowerDBm,
		AntennaGainDB:     ch.AntennaGainDB,
		NoiseFigureDB:     ch.NoiseFigureDB,
		SNRThresholdDB:    ch.SNRThresholdDB,
		SNRScaleDB:        ch.SNRScaleDB,
		ContentionPenalty: ch.ContentionPenalty,
		CellSize:          ch.CellSize,
		MaxSpectralEff:    ch.MaxSpectralEff,
	}
}

// TrafficConfig converts one flow.
func (f FlowConfig) TrafficConfig() sim.TrafficConfig {
	return sim.TrafficConfig{
		Server:      sim.NodeID(f.Server),
		Client:      sim.NodeID(f.Client),
		Port:        f.Port,
		PacketCount: f.Packets,
		Interval:    sim.Seconds(f.IntervalSeconds),
		PacketSize:  f.PacketSize,
		ServerStart: sim.Seconds(f.ServerStartSeconds),
		ServerStop:  sim.Seconds(f.ServerStopSeconds),
		ClientStart: sim.Seconds(f.ClientStartSeconds),
		ClientStop:  sim.Seconds(f.ClientStopSeconds),
		EchoAcks:    f.EchoAcks,
	}
}

// Validate checks every section without building anything.
func (c Config) Validate() error {
	if !(c.StopSeconds > 0) {
		return sim.InvalidConfigf("stop_seconds must be positive, got %g", c.StopSeconds)
	}
	if err := c.VehicleConfig().Validate(); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}
	prefix := c.Network.Prefix
	if prefix == "" {
		prefix = topology.DefaultPrefix
	}
	capacity, err := topology.HostCapacity(prefix)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if c.Vehicles.Count > capacity {
		return sim.InvalidConfigf("vehicles: count %d exceeds the %d addresses of %s", c.Vehicles.Count, capacity, prefix)
	}
	if err := channel.ValidateConfig(c.ChannelConfig()); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	for i, f := range c.Traffic {
		if err := f.TrafficConfig().Validate(); err != nil {
			return fmt.Errorf("traffic[%d]: %w", i, err)
		}
		for _, id := range []int{f.Server, f.Client} {
			if id < 0 || id >= c.Vehicles.Count {
				return fmt.Errorf("traffic[%d]: %w", i, sim.InvalidConfigf("node %d outside 0..%d", id, c.Vehicles.Count-1))
			}
		}
	}
	if !trace.IsValidTraceLevel(c.Trace.Level) {
		return sim.InvalidConfigf("unknown trace level %q", c.Trace.Level)
	}
	return nil
}

// Build validates c and returns a fully configured context ready to Run.
func Build(c Config) (*SimulationContext, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ctx, err := NewSimulationContext(Options{
		Seed:       c.Seed,
		TraceLevel: trace.TraceLevel(c.Trace.Level),
		Prefix:     c.Network.Prefix,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.ConfigureFleet(c.VehicleConfig()); err != nil {
		return nil, err
	}
	if err := ctx.ConfigureChannelConfig(c.ChannelConfig()); err != nil {
		return nil, err
	}
	for _, f := range c.Traffic {
		if err := ctx.ConfigureTraffic(f.TrafficConfig()); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}
