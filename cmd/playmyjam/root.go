package main

import (
	"github.com/spf13/cobra"

	"github.com/krishangMittal/PlayMyJam/internal/config"
	pkglog "github.com/krishangMittal/PlayMyJam/pkg/log"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "playmyjam",
	Short:         "Live song-request rooms for DJs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			l := pkglog.L()
			l.Error().Err(err).Msg("failed to load config")
			return err
		}
		cfg = loaded

		pkglog.Init(pkglog.Config{
			Level:       cfg.Log.Level,
			Pretty:      cfg.Log.Pretty,
			ServiceName: cfg.Log.ServiceName,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing config.yaml")
	rootCmd.AddCommand(serveCmd, sweepCmd, migrateCmd)
}
