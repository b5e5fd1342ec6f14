package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vanet-sim/vanet-sim/sim/scenario"
)

// opts holds the run command's flags.
var opts runOptions

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "vanet-sim",
	Short: "Discrete-event simulator for vehicular wireless networks",
}

// runCmd executes a scenario built from the scenario file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a VANET scenario",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(opts.logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", opts.logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := resolveScenario(cmd.Flags(), &opts)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}

		logrus.Infof("Starting simulation: %d vehicles, %s channel at %.3g GHz, %d flow(s), stop=%gs, seed=%d",
			cfg.Vehicles.Count, cfg.Channel.Profile, cfg.Channel.FrequencyHz/1e9, len(cfg.Traffic), cfg.StopSeconds, cfg.Seed)

		startTime := time.Now()
		if err := runScenario(cfg, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// defaultConfigCmd prints the reference scenario as YAML
var defaultConfigCmd = &cobra.Command{
	Use:   "default-config",
	Short: "Print the reference scenario as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := scenario.DefaultConfig().Marshal()
		if err != nil {
			logrus.Fatalf("YAML marshal failed: %v", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	},
}

// runScenario builds, runs and tears down one simulation, writing the
// metrics report to w and any requested trace files.
func runScenario(cfg scenario.Config, w io.Writer) error {
	ctx, err := scenario.Build(cfg)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	if err := ctx.Run(cfg.Stop()); err != nil {
		return err
	}
	ctx.Metrics.Print(w, ctx.Sim.Now())
	printStats(w, ctx.Stats())
	return writeTraceFiles(ctx, cfg.Trace)
}

func printStats(w io.Writer, s scenario.Stats) {
	fmt.Fprintln(w, "=== Traffic ===")
	fmt.Fprintf(w, "Packets Sent         : %d\n", s.Sent)
	fmt.Fprintf(w, "Packets Granted      : %d\n", s.Granted)
	fmt.Fprintf(w, "Packets Dropped      : %d\n", s.Dropped)
	fmt.Fprintf(w, "Packets Received     : %d\n", s.Received)
	fmt.Fprintf(w, "Packets Lost (gaps)  : %d\n", s.Lost)
	fmt.Fprintf(w, "Arrivals While Closed: %d\n", s.Closed)
	fmt.Fprintf(w, "Acks Received        : %d\n", s.Acks)
	fmt.Fprintf(w, "Mobility Ticks       : %d\n", s.MobilityTicks)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	opts.bind(runCmd.Flags())

	// Attach `run` and `default-config` as subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(defaultConfigCmd)
}
