package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/vanet-sim/vanet-sim/sim/scenario"
)

// runOptions are the flags of the run command. Scenario flags override the
// scenario file only when set explicitly on the command line.
type runOptions struct {
	configPath  string
	logLevel    string
	seed        int64
	stopSeconds float64
	vehicles    int
	speedMin    float64
	speedMax    float64
	frequency   float64
	bandwidth   float64
	profile     string
	echoAcks    bool
	traceLevel  string
	traceOut    string
	animOut     string
}

func (o *runOptions) bind(fs *pflag.FlagSet) {
	def := scenario.DefaultConfig()

	fs.StringVar(&o.configPath, "config", "", "Path to a scenario YAML file (defaults to the reference scenario)")
	fs.StringVar(&o.logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	fs.Int64Var(&o.seed, "seed", def.Seed, "Seed for mobility and channel randomness")
	fs.Float64Var(&o.stopSeconds, "stop", def.StopSeconds, "Simulation stop time in seconds")

	// Vehicle fleet
	fs.IntVar(&o.vehicles, "vehicles", def.Vehicles.Count, "Number of vehicles")
	fs.Float64Var(&o.speedMin, "speed-min", def.Vehicles.SpeedMin, "Minimum vehicle speed (m/s)")
	fs.Float64Var(&o.speedMax, "speed-max", def.Vehicles.SpeedMax, "Maximum vehicle speed (m/s)")

	// Channel
	fs.Float64Var(&o.frequency, "frequency", def.Channel.FrequencyHz, "Carrier frequency (Hz)")
	fs.Float64Var(&o.bandwidth, "bandwidth", def.Channel.BandwidthHz, "Channel bandwidth (Hz)")
	fs.StringVar(&o.profile, "profile", def.Channel.Profile, "Path-loss profile (UMa, UMi, RMa, InH)")

	// Traffic
	fs.BoolVar(&o.echoAcks, "echo-acks", false, "Servers acknowledge every packet they accept")

	// Telemetry
	fs.StringVar(&o.traceLevel, "trace-level", def.Trace.Level, "Trace verbosity (none, transmissions, full)")
	fs.StringVar(&o.traceOut, "trace-out", "", "Write the trace as JSON to this path")
	fs.StringVar(&o.animOut, "anim-out", "", "Write an XML animation timeline to this path")
}

// resolveScenario loads the scenario file (or the reference scenario),
// applies explicitly set flags on top, and validates the result.
func resolveScenario(fs *pflag.FlagSet, o *runOptions) (scenario.Config, error) {
	cfg := scenario.DefaultConfig()
	if o.configPath != "" {
		loaded, err := scenario.LoadConfig(o.configPath)
		if err != nil {
			return scenario.Config{}, err
		}
		cfg = loaded
		logrus.Infof("Loaded scenario from %s", o.configPath)
	}

	if fs.Changed("seed") {
		cfg.Seed = o.seed
	}
	if fs.Changed("stop") {
		cfg.StopSeconds = o.stopSeconds
	}
	if fs.Changed("vehicles") {
		cfg.Vehicles.Count = o.vehicles
	}
	if fs.Changed("speed-min") {
		cfg.Vehicles.SpeedMin = o.speedMin
	}
	if fs.Changed("speed-max") {
		cfg.Vehicles.SpeedMax = o.speedMax
	}
	if fs.Changed("frequency") {
		cfg.Channel.FrequencyHz = o.frequency
	}
	if fs.Changed("bandwidth") {
		cfg.Channel.BandwidthHz = o.bandwidth
	}
	if fs.Changed("profile") {
		cfg.Channel.Profile = o.profile
	}
	if fs.Changed("echo-acks") {
		for i := range cfg.Traffic {
			cfg.Traffic[i].EchoAcks = o.echoAcks
		}
	}
	if fs.Changed("trace-level") {
		cfg.Trace.Level = o.traceLevel
	}
	if fs.Changed("trace-out") {
		cfg.Trace.JSONOut = o.traceOut
	}
	if fs.Changed("anim-out") {
		cfg.Trace.AnimOut = o.animOut
	}
	// Exports need something to export.
	if (cfg.Trace.JSONOut != "" || cfg.Trace.AnimOut != "") && (cfg.Trace.Level == "" || cfg.Trace.Level == "none") {
		cfg.Trace.Level = "full"
	}

	if err := cfg.Validate(); err != nil {
		return scenario.Config{}, err
	}
	return cfg, nil
}

// writeTraceFiles exports the run's trace to the configured paths.
func writeTraceFiles(ctx *scenario.SimulationContext, ts scenario.TraceSection) error {
	if ctx.Trace == nil {
		return nil
	}
	if ts.JSONOut != "" {
		if err := writeFile(ts.JSONOut, ctx.Trace.WriteJSON); err != nil {
			return err
		}
		logrus.Infof("Wrote trace to %s", ts.JSONOut)
	}
	if ts.AnimOut != "" {
		if err := writeFile(ts.AnimOut, ctx.Trace.WriteAnimXML); err != nil {
			return err
		}
		logrus.Infof("Wrote animation to %s", ts.AnimOut)
	}
	return nil
}

func writeFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
