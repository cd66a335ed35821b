package commands

import (
	"github.com/spf13/cobra"

	"github.com/cegidsync/cegidsync/internal/store"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Create, drop or inspect the destination tables",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{store.MigrateUp, store.MigrateDown, store.MigrateStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := store.MigrateUp
			if len(args) > 0 {
				direction = args[0]
			}
			cfg, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()

			return store.Migrate(st, direction, log)
		},
	}
}
