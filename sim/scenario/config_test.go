package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanet-sim/vanet-sim/sim"
)

func TestDefaultConfig_IsReferenceScenario(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*sim.Second, cfg.Stop())
	assert.Equal(t, 10, cfg.Vehicles.Count)
	assert.Equal(t, 28e9, cfg.Channel.FrequencyHz)
	assert.Equal(t, 100e6, cfg.Channel.BandwidthHz)
	assert.Equal(t, "UMa", cfg.Channel.Profile)
	require.Len(t, cfg.Traffic, 1)
	tc := cfg.Traffic[0].TrafficConfig()
	assert.Equal(t, sim.NodeID(0), tc.Server)
	assert.Equal(t, sim.NodeID(1), tc.Client)
	assert.Equal(t, uint16(8080), tc.Port)
	assert.Equal(t, 500*sim.Millisecond, tc.Interval)
	assert.Equal(t, 2*sim.Second, tc.ClientStart)
	assert.Equal(t, 100*sim.Millisecond, cfg.VehicleConfig().Tick)
}

func TestParseConfig_OverlaysDefaults(t *testing.T) {
	// GIVEN a file overriding only the seed and the vehicle count
	cfg, err := ParseConfig(strings.NewReader("seed: 7\nvehicles:\n  count: 4\n"))
	require.NoError(t, err)

	// THEN unspecified fields keep their defaults
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 4, cfg.Vehicles.Count)
	assert.Equal(t, 500.0, cfg.Vehicles.Bounds.MaxX)
	assert.Equal(t, "UMa", cfg.Channel.Profile)
	assert.Len(t, cfg.Traffic, 1)
}

func TestParseConfig_TrafficListReplacesDefaultFlow(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
traffic:
  - server: 2
    client: 3
    port: 9000
    packets: 5
    interval_seconds: 1
    packet_size: 200
    server_stop_seconds: 10
    client_stop_seconds: 10
    echo_acks: true
`))
	require.NoError(t, err)
	require.Len(t, cfg.Traffic, 1)
	assert.Equal(t, 2, cfg.Traffic[0].Server)
	assert.True(t, cfg.Traffic[0].EchoAcks)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfig_UnknownFieldIsError(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("vehicles:\n  cuont: 4\n"))
	assert.Error(t, err)
}

func TestParseConfig_EmptyInputIsDefault(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_MarshalThenParse(t *testing.T) {
	want := DefaultConfig()
	want.Seed = 99
	want.Trace.Level = "full"
	data, err := want.Marshal()
	require.NoError(t, err)

	got, err := ParseConfig(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stop_seconds: 12\nchannel:\n  profile: UMi\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 12*sim.Second, cfg.Stop())
	assert.Equal(t, "UMi", cfg.Channel.Profile)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero stop", func(c *Config) { c.StopSeconds = 0 }},
		{"no vehicles", func(c *Config) { c.Vehicles.Count = 0 }},
		{"inverted speeds", func(c *Config) { c.Vehicles.SpeedMin = 30 }},
		{"more vehicles than addresses", func(c *Config) { c.Network.Prefix = "10.0.0.0/29" }},
		{"bad prefix", func(c *Config) { c.Network.Prefix = "10.0.0.0/33" }},
		{"unknown profile", func(c *Config) { c.Channel.Profile = "Desert" }},
		{"zero bandwidth", func(c *Config) { c.Channel.BandwidthHz = 0 }},
		{"server out of range", func(c *Config) { c.Traffic[0].Server = 10 }},
		{"zero interval", func(c *Config) { c.Traffic[0].IntervalSeconds = 0 }},
		{"same endpoints", func(c *Config) { c.Traffic[0].Client = 0 }},
		{"bad trace level", func(c *Config) { c.Trace.Level = "everything" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, sim.ErrInvalidConfig)
		})
	}
}
