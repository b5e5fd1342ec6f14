package sim

import "math"

// VehicleConfig groups mobility parameters for the vehicle fleet.
type VehicleConfig struct {
	Count          int     // number of vehicles (must be > 0)
	Bounds         Rect    // region vehicles stay inside
	SpeedMin       float64 // m/s, >= 0
	SpeedMax       float64 // m/s, >= SpeedMin
	Tick           SimTime // period of the mobility update event (default 100ms)
	RedrawInterval SimTime // travel time after which speed/heading are redrawn (default 1s)
}

// NewVehicleConfig creates a VehicleConfig with the given fleet parameters
// and default tick/redraw periods.
func NewVehicleConfig(count int, bounds Rect, speedMin, speedMax float64) VehicleConfig {
	return VehicleConfig{
		Count:          count,
		Bounds:         bounds,
		SpeedMin:       speedMin,
		SpeedMax:       speedMax,
		Tick:           100 * Millisecond,
		RedrawInterval: Second,
	}
}

// Validate rejects negative counts, empty bounds and inverted speed ranges.
func (c VehicleConfig) Validate() error {
	if c.Count <= 0 {
		return InvalidConfigf("vehicle count must be positive, got %d", c.Count)
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if err := validateFinite("speed min", c.SpeedMin); err != nil {
		return err
	}
	if err := validateFinite("speed max", c.SpeedMax); err != nil {
		return err
	}
	if c.SpeedMin < 0 || c.SpeedMax < c.SpeedMin {
		return InvalidConfigf("speed range must satisfy 0 <= min <= max, got [%g,%g]", c.SpeedMin, c.SpeedMax)
	}
	if c.Tick <= 0 {
		return InvalidConfigf("mobility tick must be positive, got %s", c.Tick)
	}
	if c.RedrawInterval <= 0 {
		return InvalidConfigf("redraw interval must be positive, got %s", c.RedrawInterval)
	}
	return nil
}

// ChannelConfig groups the radio parameters of the shared channel.
type ChannelConfig struct {
	FrequencyHz       float64 // carrier frequency (must be > 0)
	BandwidthHz       float64 // channel bandwidth (must be > 0)
	Profile           string  // path-loss scenario profile: "UMa", "UMi", "RMa", "InH"
	TxPowerDBm        float64 // transmit power
	AntennaGainDB     float64 // combined tx+rx beamforming gain
	NoiseFigureDB     float64 // receiver noise figure
	SNRThresholdDB    float64 // SNR at which success probability is 0.5
	SNRScaleDB        float64 // logistic slope of the success curve (must be > 0)
	ContentionPenalty float64 // success divisor growth per concurrent grant in a cell (>= 0)
	CellSize          float64 // side of the square contention cells in metres (must be > 0)
	MaxSpectralEff    float64 // bits/s/Hz cap on Shannon efficiency (must be > 0)
}

// NewChannelConfig creates a ChannelConfig for the given carrier with
// defaults for the link-budget parameters.
func NewChannelConfig(frequencyHz, bandwidthHz float64, profile string) ChannelConfig {
	return ChannelConfig{
		FrequencyHz:       frequencyHz,
		BandwidthHz:       bandwidthHz,
		Profile:           profile,
		TxPowerDBm:        23,
		AntennaGainDB:     20,
		NoiseFigureDB:     9,
		SNRThresholdDB:    0,
		SNRScaleDB:        2,
		ContentionPenalty: 0.25,
		CellSize:          250,
		MaxSpectralEff:    7.4,
	}
}

// Validate rejects non-positive frequency/bandwidth and malformed link-budget knobs.
// Profile names are checked by the channel package, which owns the profile table.
func (c ChannelConfig) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"frequency", c.FrequencyHz},
		{"bandwidth", c.BandwidthHz},
		{"tx power", c.TxPowerDBm},
		{"antenna gain", c.AntennaGainDB},
		{"noise figure", c.NoiseFigureDB},
		{"snr threshold", c.SNRThresholdDB},
		{"snr scale", c.SNRScaleDB},
		{"contention penalty", c.ContentionPenalty},
		{"cell size", c.CellSize},
		{"max spectral eff", c.MaxSpectralEff},
	}
	for _, f := range fields {
		if err := validateFinite(f.name, f.v); err != nil {
			return err
		}
	}
	if c.FrequencyHz <= 0 {
		return InvalidConfigf("frequency must be positive, got %g", c.FrequencyHz)
	}
	if c.BandwidthHz <= 0 {
		return InvalidConfigf("bandwidth must be positive, got %g", c.BandwidthHz)
	}
	if c.SNRScaleDB <= 0 {
		return InvalidConfigf("snr scale must be positive, got %g", c.SNRScaleDB)
	}
	if c.ContentionPenalty < 0 {
		return InvalidConfigf("contention penalty must be non-negative, got %g", c.ContentionPenalty)
	}
	if c.CellSize <= 0 {
		return InvalidConfigf("cell size must be positive, got %g", c.CellSize)
	}
	if c.MaxSpectralEff <= 0 {
		return InvalidConfigf("max spectral efficiency must be positive, got %g", c.MaxSpectralEff)
	}
	return nil
}

// TrafficConfig describes one client/server UDP flow.
type TrafficConfig struct {
	Server      NodeID
	Client      NodeID
	Port        uint16
	PacketCount int     // MaxPackets for the client (must be > 0)
	Interval    SimTime // client send period (must be > 0)
	PacketSize  int     // bytes (must be > 0)
	ServerStart SimTime
	ServerStop  SimTime
	ClientStart SimTime
	ClientStop  SimTime
	EchoAcks    bool // server answers every accepted packet with an ack
}

// Validate rejects empty flows and inverted start/stop windows.
func (c TrafficConfig) Validate() error {
	if c.PacketCount <= 0 {
		return InvalidConfigf("packet count must be positive, got %d", c.PacketCount)
	}
	if c.Interval <= 0 {
		return InvalidConfigf("interval must be positive, got %s", c.Interval)
	}
	if c.PacketSize <= 0 {
		return InvalidConfigf("packet size must be positive, got %d", c.PacketSize)
	}
	if c.Server == c.Client {
		return InvalidConfigf("server and client must be different nodes, both are %d", c.Server)
	}
	if c.ServerStart < 0 || c.ServerStop < c.ServerStart {
		return InvalidConfigf("server window [%s,%s] is inverted or negative", c.ServerStart, c.ServerStop)
	}
	if c.ClientStart < 0 || c.ClientStop < c.ClientStart {
		return InvalidConfigf("client window [%s,%s] is inverted or negative", c.ClientStart, c.ClientStop)
	}
	return nil
}

func validateFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return InvalidConfigf("%s must be a finite number, got %f", name, v)
	}
	return nil
}
