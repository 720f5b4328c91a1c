package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	hevsup "github.com/h2labs/hevsup"
	logAdapter "github.com/h2labs/hevsup/internal/adapters/log"
	"github.com/h2labs/hevsup/internal/cliconfig"
)

const helpBanner = `
 _   _  _____ __     __ ____   _   _  ____
| | | || ____|\ \   / // ___| | | | ||  _ \
| |_| ||  _|   \ \ / / \___ \ | | | || |_) |
|  _  || |___   \ V /   ___) || |_| ||  __/
|_| |_||_____|   \_/   |____/  \___/ |_|
`

const helpDescription = `
Supervise a hydrogen-hybrid powertrain controller over a lossy serial or UDP link.

Highlights:
  - Bounded control loop: deterministic baseline plus a hot-reloadable learned adjustment.
  - Health-monitored arbitration clamps every command to the configured envelope.
  - Framed, checksummed link with retransmission, backoff and automatic recovery.
  - Records every decision to rotating jsonl/csv files off the control path.

Docs: https://github.com/h2labs/hevsup
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  hevsup --transport serial --serial-port /dev/ttyACM0 --model models/adjust.json
  hevsup --config $HOME/.hevsup/config.toml --max-ticks 10000
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "hevsup",
		Short:   "Supervise a hydrogen-hybrid powertrain controller over a lossy link",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.hevsup/config.toml), then apply flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (HEVSUP_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// Validate and normalize
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cliconfig.SetLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			log = cliconfig.Logger()

			log.Info().Interface("config", cfg).Msg("configuration")

			// Convert cliconfig.Config to hevsup.Config
			libCfg := hevsup.Config{
				Transport:          cfg.Transport,
				SerialPort:         cfg.SerialPort,
				SerialBaud:         cfg.SerialBaud,
				UDPListen:          cfg.UDPListen,
				UDPPeer:            cfg.UDPPeer,
				SimSeed:            cfg.SimSeed,
				SimPeriodMs:        uint32(cfg.SimPeriodMs),
				TickPeriod:         cfg.TickPeriod,
				PolicyBudget:       cfg.PolicyBudget,
				ReceiveBudget:      cfg.ReceiveBudget,
				MaxTicks:           uint64(cfg.MaxTicks),
				AckWindow:          cfg.AckWindow,
				BackoffInitial:     cfg.BackoffInitial,
				BackoffMax:         cfg.BackoffMax,
				RetryLimit:         cfg.RetryLimit,
				QuietPeriod:        cfg.QuietPeriod,
				SeqWindow:          cfg.SeqWindow,
				EnvelopeMin:        cfg.EnvelopeMin,
				EnvelopeMax:        cfg.EnvelopeMax,
				FailSafe:           cfg.FailSafe,
				WarnScale:          cfg.WarnScale,
				Health: hevsup.HealthThresholds{
					SOCLowCrit:     cfg.Health.SOCLowCrit,
					SOCLowWarn:     cfg.Health.SOCLowWarn,
					SOCHighWarn:    cfg.Health.SOCHighWarn,
					SOCHighCrit:    cfg.Health.SOCHighCrit,
					VoltageLow:     cfg.Health.VoltageLow,
					VoltageHigh:    cfg.Health.VoltageHigh,
					CurrentHigh:    cfg.Health.CurrentHigh,
					CurrentRateMax: cfg.Health.CurrentRateMax,
					TempWarn:       cfg.Health.TempWarn,
					TempCrit:       cfg.Health.TempCrit,
					H2LowWarn:      cfg.Health.H2LowWarn,
					H2LowCrit:      cfg.Health.H2LowCrit,
					StaleAfter:     cfg.Health.StaleAfter,
				},
				RecorderDir:        cfg.RecorderDir,
				RecorderFormat:     cfg.RecorderFormat,
				RecorderQueue:      cfg.RecorderQueue,
				RecorderMaxRecords: cfg.RecorderMaxRecords,
				ModelPath:          cfg.ModelPath,
			}

			// Create zerolog adapter for the library
			zerologAdapter := logAdapter.NewZerologAdapterWithLogger(log)

			sup, err := hevsup.New(libCfg, hevsup.WithLogger(zerologAdapter))
			if err != nil {
				return fmt.Errorf("create supervisor: %w", err)
			}

			// Setup signal handling for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := sup.Start(ctx); err != nil {
				return fmt.Errorf("start supervisor: %w", err)
			}

			// Wait for signal or completion (tick limit or crash)
			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
			case <-sup.Done():
				if sup.Status() == hevsup.StateCrashed {
					return fmt.Errorf("supervisor crashed: %w", sup.Err())
				}
			}

			// Graceful shutdown
			if err := sup.Stop(); err != nil {
				return fmt.Errorf("stop supervisor: %w", err)
			}

			st := sup.Stats()
			log.Info().
				Uint64("ticks", st.Ticks).
				Uint64("dispatched", st.Dispatched).
				Uint64("telemetry_applied", st.TelemetryApplied).
				Uint64("corrupt_frames", st.CorruptFrames).
				Uint64("records_written", st.RecordsWritten).
				Uint64("records_dropped", st.RecordsDropped).
				Msg("run complete")
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.hevsup/config.toml)")
	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "transport to the controller: sim, serial or udp")
	root.Flags().StringVar(&cfg.SerialPort, "serial-port", cfg.SerialPort, "serial device path")
	root.Flags().IntVar(&cfg.SerialBaud, "serial-baud", cfg.SerialBaud, "serial line rate")
	root.Flags().StringVar(&cfg.UDPListen, "udp-listen", cfg.UDPListen, "local UDP address to bind")
	root.Flags().StringVar(&cfg.UDPPeer, "udp-peer", cfg.UDPPeer, "controller UDP address")

	root.Flags().Int64Var(&cfg.SimSeed, "sim-seed", cfg.SimSeed, "simulated controller noise seed")
	root.Flags().IntVar(&cfg.SimPeriodMs, "sim-period", cfg.SimPeriodMs, "simulated controller telemetry period in milliseconds")

	root.Flags().DurationVar(&cfg.TickPeriod, "tick-period", cfg.TickPeriod, "control tick period")
	root.Flags().DurationVar(&cfg.PolicyBudget, "policy-budget", cfg.PolicyBudget, "per-tick policy compute budget")
	root.Flags().IntVar(&cfg.ReceiveBudget, "receive-budget", cfg.ReceiveBudget, "maximum transport bytes drained per tick")
	root.Flags().IntVar(&cfg.MaxTicks, "max-ticks", cfg.MaxTicks, "run this many ticks then exit (soak mode; 0 runs until stopped)")

	root.Flags().DurationVar(&cfg.AckWindow, "ack-window", cfg.AckWindow, "command acknowledgment window")
	root.Flags().DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "first retransmit backoff")
	root.Flags().DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "retransmit backoff ceiling")
	root.Flags().IntVar(&cfg.RetryLimit, "retry-limit", cfg.RetryLimit, "consecutive misses before the link is declared down")
	root.Flags().DurationVar(&cfg.QuietPeriod, "quiet-period", cfg.QuietPeriod, "quiet period before the link recovery handshake")
	root.Flags().IntVar(&cfg.SeqWindow, "seq-window", cfg.SeqWindow, "telemetry sequence acceptance window")

	root.Flags().Float64SliceVar(&cfg.EnvelopeMin, "envelope-min", cfg.EnvelopeMin, "control envelope lower bound per axis")
	root.Flags().Float64SliceVar(&cfg.EnvelopeMax, "envelope-max", cfg.EnvelopeMax, "control envelope upper bound per axis")
	root.Flags().Float64SliceVar(&cfg.FailSafe, "fail-safe", cfg.FailSafe, "fail-safe control vector")
	root.Flags().Float64Var(&cfg.WarnScale, "warn-scale", cfg.WarnScale, "fraction of the adjustment kept under WARNING health")

	root.Flags().StringVar(&cfg.RecorderDir, "recorder-dir", cfg.RecorderDir, "trajectory output directory")
	root.Flags().StringVar(&cfg.RecorderFormat, "recorder-format", cfg.RecorderFormat, "trajectory file format: jsonl or csv")
	root.Flags().IntVar(&cfg.RecorderQueue, "recorder-queue", cfg.RecorderQueue, "recorder queue capacity")
	root.Flags().IntVar(&cfg.RecorderMaxRecords, "recorder-max-records", cfg.RecorderMaxRecords, "records per trajectory file before rotation")

	root.Flags().StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "adjustment model JSON file, watched and hot-reloaded on change")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("hevsup")
		os.Exit(1)
	}
}
