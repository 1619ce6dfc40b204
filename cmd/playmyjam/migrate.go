package main

import (
	"github.com/spf13/cobra"

	pkglog "github.com/krishangMittal/PlayMyJam/pkg/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables or indexes for the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.store.Migrate(ctx); err != nil {
			return err
		}

		l := pkglog.L()
		l.Info().Str("driver", cfg.Store.Driver).Msg("migration completed")
		return nil
	},
}
