package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cegidsync/cegidsync/internal/importer"
	"github.com/cegidsync/cegidsync/internal/report"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Show which table each CSV file would load into, without touching the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd.OutOrStdout(), args)
		},
	}
}

func runDetect(out io.Writer, paths []string) error {
	im := importer.New(importer.Options{})
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tENTITY\tTABLE\tENCODING\tDELIMITER\tCOLUMNS\tRECORDS\tERROR")

	failed := 0
	for _, path := range paths {
		name := report.Truncate(filepath.Base(path), report.FileWidth)
		res, err := im.Inspect(path)
		if err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t%v\n", name, err)
			continue
		}
		if !res.Succeeded {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%q\t%d\t%s\t%s\n", name, dash(res.Entity), dash(res.Table),
			res.Encoding, res.Delimiter, len(res.Columns), strconv.Itoa(res.Records), res.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files not recognized", failed, len(paths))
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
