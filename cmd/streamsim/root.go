// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information, set during build
	Version   = "dev"
	GitCommit = "unknown"
)

// newRootCmd builds the command tree around its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "streamsim",
		Short: "Soak test for the streamq executor and buffer queue",
		Long: `Streamsim drives a streamq executor and buffer queue the way a media
engine does: the application keeps a set of buffers enqueued, every retired
buffer is refilled by a deferred task, and a simulated device pulls the stream
at a configurable rate and checks that it arrives intact and in order.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
			}
			if verbose {
				v.Set("logging.level", "debug")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd, v)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./streamsim.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Local flags for the run command
	flags := rootCmd.Flags()
	flags.Int("exec-capacity", 15, "executor queue capacity")
	flags.IntP("workers", "w", 2, "executor worker goroutines")
	flags.Int("queue-capacity", 4, "buffers kept in flight")
	flags.Int("chunk-size", 4096, "bytes per enqueued buffer")
	flags.Int("pull-size", 960, "bytes requested per device pull")
	flags.Float64("rate", 0, "device pulls per second (0 for unpaced)")
	flags.Int("burst", 1, "device pull burst")
	flags.Int("ring-size", 16384, "device ring size in bytes")
	flags.Bool("async", false, "pull on executor workers")
	flags.DurationP("duration", "d", 10*time.Second, "run duration")
	flags.IntP("chunks", "n", 0, "stop after this many chunks (0 for unlimited)")
	flags.String("metrics", "", "serve Prometheus metrics on this address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	v.BindPFlag("executor.capacity", flags.Lookup("exec-capacity"))
	v.BindPFlag("executor.workers", flags.Lookup("workers"))
	v.BindPFlag("queue.capacity", flags.Lookup("queue-capacity"))
	v.BindPFlag("queue.chunk_size", flags.Lookup("chunk-size"))
	v.BindPFlag("player.pull_size", flags.Lookup("pull-size"))
	v.BindPFlag("player.rate", flags.Lookup("rate"))
	v.BindPFlag("player.burst", flags.Lookup("burst"))
	v.BindPFlag("player.ring_size", flags.Lookup("ring-size"))
	v.BindPFlag("player.async", flags.Lookup("async"))
	v.BindPFlag("run.duration", flags.Lookup("duration"))
	v.BindPFlag("run.chunks", flags.Lookup("chunks"))
	v.BindPFlag("metrics.listen", flags.Lookup("metrics"))
	v.BindPFlag("logging.level", flags.Lookup("log-level"))
	v.BindPFlag("logging.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(newConfigCmd(v))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func runSim(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := LoadConfig(v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	log := setupLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting simulation",
		slog.Int("workers", cfg.Executor.Workers),
		slog.Int("buffers", cfg.Queue.Capacity),
		slog.Int("chunk_size", cfg.Queue.ChunkSize),
		slog.Bool("async", cfg.Player.Async))

	res, err := Run(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	log.Info("Simulation finished",
		slog.Int64("bytes", res.Bytes),
		slog.Int64("retired", res.Retired),
		slog.Int64("starvations", res.Starvations),
		slog.Int64("tasks", res.Tasks),
		slog.Duration("elapsed", res.Elapsed))

	fmt.Fprintf(cmd.OutOrStdout(), "%d bytes, %d buffers, %d starvations in %s\n",
		res.Bytes, res.Retired, res.Starvations, res.Elapsed.Round(time.Millisecond))
	if res.Mismatches > 0 {
		return fmt.Errorf("stream corrupted: %d mismatches", res.Mismatches)
	}
	return nil
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(v)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(v)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Current Configuration:")
			fmt.Fprintf(w, "  Executor: capacity=%d workers=%d\n", cfg.Executor.Capacity, cfg.Executor.Workers)
			fmt.Fprintf(w, "  Queue: capacity=%d chunk_size=%d\n", cfg.Queue.Capacity, cfg.Queue.ChunkSize)
			fmt.Fprintf(w, "  Player: pull_size=%d rate=%g burst=%d ring_size=%d async=%t\n",
				cfg.Player.PullSize, cfg.Player.Rate, cfg.Player.Burst, cfg.Player.RingSize, cfg.Player.Async)
			fmt.Fprintf(w, "  Run: duration=%s chunks=%d\n", cfg.Run.Duration, cfg.Run.Chunks)
			fmt.Fprintf(w, "  Metrics: listen=%q\n", cfg.Metrics.Listen)
			fmt.Fprintf(w, "  Logging: level=%s format=%s\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	})
	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "streamsim version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Git commit: %s\n", GitCommit)
		},
	}
}
