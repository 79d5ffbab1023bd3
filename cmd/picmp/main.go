// Package main provides the CLI entry point for the picmp latency prober.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/postalsys/picmp/internal/config"
	"github.com/postalsys/picmp/internal/icmp"
	"github.com/postalsys/picmp/internal/logging"
	"github.com/postalsys/picmp/internal/metrics"
)

var (
	// Version is set at build time
	Version = "dev"
)

var (
	replyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	timeoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		if errors.Is(err, icmp.ErrPermission) {
			fmt.Fprintln(os.Stderr, "picmp: must run with elevated privileges (root or CAP_NET_RAW)")
		} else {
			fmt.Fprintln(os.Stderr, "picmp:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	configPath    string
	count         int
	interval      time.Duration
	timeout       time.Duration
	fixedSequence bool
	logLevel      string
	logFormat     string
	metricsAddr   string
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "picmp [flags] <host>",
		Short: "picmp - ICMP echo latency prober",
		Long: `picmp sends ICMP echo requests to a host over a raw socket and
reports the round-trip time of each probe in milliseconds.

Probes without a reply within the timeout are reported as -1.
Raw sockets require root or CAP_NET_RAW.`,
		Version:       Version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cmd.OutOrStdout(), args[0], cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.IntVarP(&opts.count, "count", "c", 0, "Number of probes to send")
	flags.DurationVarP(&opts.interval, "interval", "i", 0, "Pause between probes")
	flags.DurationVarP(&opts.timeout, "timeout", "W", 0, "Time to wait for each reply")
	flags.BoolVar(&opts.fixedSequence, "fixed-sequence", false, "Send sequence 1 on every probe and match replies by identifier only")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "picmp %s\n", Version)
		},
	}
}

// loadConfig reads the config file, if any, and applies the flags that were
// set explicitly on top of it.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("count") {
		cfg.Probe.Count = opts.count
	}
	if flags.Changed("interval") {
		cfg.Probe.Interval = opts.interval
	}
	if flags.Changed("timeout") {
		cfg.Probe.Timeout = opts.timeout
	}
	if flags.Changed("fixed-sequence") {
		cfg.Probe.FixedSequence = opts.fixedSequence
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = opts.metricsAddr != ""
		cfg.Metrics.Address = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, out io.Writer, host string, cfg *config.Config) error {
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsWithRegistry(reg)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Address, cfg.Metrics.Path, reg); err != nil {
				logger.Error("metrics server failed",
					logging.KeyAddress, cfg.Metrics.Address,
					logging.KeyError, err)
			}
		}()
	}

	session, err := icmp.NewSession(host, cfg.ICMP(),
		icmp.WithLogger(logger),
		icmp.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Fprintf(out, "PICMP %s: %s of ICMP data, id %d\n",
		host, humanize.Bytes(uint64(icmp.MessageLen)), session.Identifier())

	samples, err := session.Run(ctx, cfg.Probe.Count, cfg.Probe.Interval)
	printSamples(out, host, samples)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printSamples(out io.Writer, host string, samples []icmp.Sample) {
	for _, s := range samples {
		if s.Replied {
			fmt.Fprintln(out, replyStyle.Render(fmt.Sprintf("reply from %s: seq=%d time=%d ms", host, s.Seq, s.Milliseconds())))
		} else {
			fmt.Fprintln(out, timeoutStyle.Render(fmt.Sprintf("no reply from %s: seq=%d", host, s.Seq)))
		}
	}
	fmt.Fprintln(out, icmp.Milliseconds(samples))
}
