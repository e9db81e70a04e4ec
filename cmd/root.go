// Package cmd wires the sagitta binary's command line interface.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sagitta/config"
	"sagitta/console"
	"sagitta/gauge"
	"sagitta/log"
	"sagitta/sensors"
	"sagitta/storage"
	"sagitta/watchdog"
)

const storeFileName = "samples.db"

var (
	configDir string
	dataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "sagitta",
	Short: "Pressure/temperature data logger with an interactive console",
	Long: `Sagitta is a pressure and temperature data logger driven by an
interactive command console. Run it without arguments to get the console on
the current terminal; use 'serve' to expose it over TCP instead, the way the
gauge hardware exposes it over a serial link.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Initialize(false)
		defer log.Close()

		g, _, cleanup, err := buildGauge()
		if err != nil {
			return err
		}
		defer cleanup()

		stdio, err := console.NewStdio(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		defer stdio.Close()

		// Return through the defers on a signal so the terminal leaves
		// raw mode and the store closes cleanly.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		done := make(chan error, 1)
		go func() { done <- g.Run(stdio.IO(), stdio.EOF) }()
		select {
		case err := <-done:
			return err
		case <-sigCh:
			return nil
		}
	},
}

// Execute runs the root command; it is the program's entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.json and state.json (default ~/.sagitta)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the sample store (default: config dir)")
}

// buildGauge assembles the logger from config: state, sample store, armed
// watchdog and discovered probes. The returned cleanup must run before the
// process exits.
func buildGauge() (*gauge.Gauge, config.Config, func(), error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, cfg, nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	dir := cfg.DataDir
	if dir == "" {
		dir, err = config.Dir()
		if err != nil {
			return nil, cfg, nil, err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, cfg, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	state := config.LoadState(configDir)

	store, err := storage.Open(filepath.Join(dir, storeFileName))
	if err != nil {
		_ = state.Close()
		return nil, cfg, nil, err
	}

	wdt := watchdog.New(state, nil)
	wdt.Configure(time.Duration(cfg.WatchdogTimeoutS * float64(time.Second)))

	probes := sensors.Discover(2)
	pressure := sensors.NewSimPressure(time.Now().UnixNano())

	g := gauge.New(cfg, configDir, state, store, wdt, probes, pressure)
	cleanup := func() {
		wdt.Stop()
		_ = store.Close()
		_ = state.Close()
	}
	return g, cfg, cleanup, nil
}
