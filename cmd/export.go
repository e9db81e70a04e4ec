package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sagitta/config"
	"sagitta/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export [log]",
	Short: "Write a sample log to stdout as CSV",
	Long: `Export dumps a log from the sample store as millis;temp;pressure
lines, the format the gauge hardware wrote to its SD card. Without an
argument the active log from the state file is exported.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		dir := cfg.DataDir
		if dir == "" {
			dir, err = config.Dir()
			if err != nil {
				return err
			}
		}

		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			state := config.LoadState(configDir)
			name = state.Filename
			_ = state.Close()
		}

		store, err := storage.Open(filepath.Join(dir, storeFileName))
		if err != nil {
			return err
		}
		defer store.Close()

		return store.Export(name, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
