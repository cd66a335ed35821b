package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cegidsync/cegidsync/internal/config"
	"github.com/cegidsync/cegidsync/internal/report"
	"github.com/cegidsync/cegidsync/internal/runlog"
	"github.com/cegidsync/cegidsync/internal/schema"
	"github.com/cegidsync/cegidsync/internal/store"
)

func newStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show row counts per table and the files of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()

			return runStatus(cmd, cfg, st)
		},
	}
}

func runStatus(cmd *cobra.Command, cfg *config.Config, st store.Store) error {
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTABLE\tROWS")
	for _, e := range schema.Entities {
		n, err := st.Count(cmd.Context(), e.Table)
		if err != nil {
			return fmt.Errorf("counting %s: %w", e.Table, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Name, e.Table, n)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if cfg.RunLog == "" {
		return nil
	}
	entries, err := runlog.LastRun(cfg.RunLog)
	if err != nil {
		return err
	}
	return writeLastRun(out, entries)
}

func writeLastRun(out io.Writer, entries []runlog.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "\nNo run recorded yet.")
		return err
	}
	fmt.Fprintf(out, "\nLast run %s (%s)\n", entries[0].RunID, entries[0].Timestamp.Local().Format(time.DateTime))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TENANT\tFILE\tOUTCOME\tTABLE\tRECORDS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", e.Tenant, report.Truncate(e.File, report.FileWidth),
			e.Outcome, e.Table, e.Records, report.Truncate(e.Error, report.ErrorWidth))
	}
	return tw.Flush()
}
