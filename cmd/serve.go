package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sagitta/cmdproc"
	"sagitta/console"
	"sagitta/log"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gauge console over TCP",
	Long: `Serve runs the gauge without a local console and accepts console
sessions over TCP. Each connection gets its own command processor; the
measurement loop, sample store and watchdog are shared.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Initialize(true)
		defer log.Close()

		g, cfg, cleanup, err := buildGauge()
		if err != nil {
			return err
		}
		defer cleanup()

		addr := cfg.ListenAddr
		if listenAddr != "" {
			addr = listenAddr
		}
		poll := time.Duration(cfg.PollIntervalMS) * time.Millisecond
		srv := console.NewServer(addr, poll, func(io cmdproc.IO) (*cmdproc.Processor, error) {
			return g.NewProcessor(io, true)
		})
		if err := srv.Start(); err != nil {
			return err
		}

		stop := make(chan struct{})
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			close(stop)
		}()

		g.RunHeadless(stop)
		srv.Stop()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "TCP console address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
