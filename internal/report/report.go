// Package report renders batch events for operators: one log line per event
// and summary tables at the end of a run.
package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/cegidsync/cegidsync/internal/batch"
)

// Column widths of the summary tables.
const (
	FileWidth  = 50
	ErrorWidth = 30
)

// LogSink logs every event and prints the summary tables to out.
type LogSink struct {
	log logrus.FieldLogger
	out io.Writer
}

// NewLogSink returns a LogSink. A nil out disables the tables.
func NewLogSink(log logrus.FieldLogger, out io.Writer) *LogSink {
	return &LogSink{log: log, out: out}
}

func (s *LogSink) Tenant(e batch.TenantEvent) {
	l := s.log.WithFields(logrus.Fields{"run_id": e.RunID, "tenant": e.Tenant})
	switch e.Status {
	case batch.TenantSkipped:
		l.Info("tenant skipped: no csv path configured")
	case batch.TenantFailed:
		l.WithError(e.Err).WithField("dir", e.Dir).Error("tenant directory unreadable")
	default:
		if e.Files == 0 {
			l.WithFields(logrus.Fields{"dir": e.Dir, "archived": e.Archived}).Info("no csv files to import")
			return
		}
		l.WithFields(logrus.Fields{"dir": e.Dir, "files": e.Files}).Info("csv files found")
	}
}

func (s *LogSink) File(e batch.FileEvent) {
	r := e.Result
	l := s.log.WithFields(logrus.Fields{
		"run_id":   e.RunID,
		"tenant":   e.Tenant,
		"file":     e.File,
		"size":     humanize.Bytes(uint64(max(e.Size, 0))),
		"duration": FormatDuration(e.Duration),
	})
	if r.Encoding != "" {
		l = l.WithFields(logrus.Fields{"encoding": r.Encoding, "delimiter": string(r.Delimiter), "columns": len(r.Columns)})
	}
	if r.Table != "" {
		l = l.WithFields(logrus.Fields{"entity": r.Entity, "table": r.Table, "cleared": r.Cleared})
	}

	switch e.Outcome {
	case batch.Imported:
		l.WithFields(logrus.Fields{"records": r.Records, "batches": r.Batches, "dest": e.Dest}).Info("file imported")
	case batch.Rejected:
		l.WithFields(logrus.Fields{"reason": r.Error, "dest": e.Dest}).Warn("file rejected")
	case batch.Unarchived:
		l.WithError(e.Err).WithField("records", r.Records).Error("file imported but not archived, rows kept")
	default:
		l.WithError(e.Err).WithField("dest", e.Dest).Error("file import failed, changes rolled back")
	}
	if e.RouteErr != nil {
		l.WithError(e.RouteErr).Error("file could not be moved to quarantine")
	}
}

func (s *LogSink) Summary(sum batch.Summary) {
	l := s.log.WithFields(logrus.Fields{
		"run_id":   sum.RunID,
		"tenants":  sum.Tenants,
		"imported": sum.Imported,
		"errored":  sum.Errored,
		"records":  sum.Records,
		"elapsed":  FormatDuration(sum.Elapsed),
	})
	if sum.Panic != "" {
		l.WithField("panic", sum.Panic).Error("run aborted")
	} else {
		l.Info("run finished")
	}
	if s.out != nil {
		if err := WriteSummary(s.out, sum); err != nil {
			s.log.WithError(err).Warn("summary not printed")
		}
	}
}

// WriteSummary prints the imported and errored file tables of a run.
func WriteSummary(w io.Writer, sum batch.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run %s: %d imported, %d errored, %d records in %s\n",
		sum.RunID, sum.Imported, sum.Errored, sum.Records, FormatDuration(sum.Elapsed))

	if len(sum.Successes) > 0 {
		fmt.Fprintln(tw, "\nIMPORTED")
		fmt.Fprintln(tw, "TENANT\tFILE\tTABLE\tRECORDS\tDURATION")
		for _, e := range sum.Successes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Tenant, Truncate(e.File, FileWidth), e.Result.Table,
				strconv.Itoa(e.Result.Records), FormatDuration(e.Duration))
		}
	}
	if len(sum.Failures) > 0 {
		fmt.Fprintln(tw, "\nERRORS")
		fmt.Fprintln(tw, "TENANT\tFILE\tOUTCOME\tERROR")
		for _, e := range sum.Failures {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Tenant, Truncate(e.File, FileWidth), e.Outcome,
				Truncate(e.Message(), ErrorWidth))
		}
	}
	return tw.Flush()
}

// Truncate shortens s to width runes, ending in "..." when cut.
func Truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// FormatDuration renders d as "2 min 3.50 sec", or "3.50 sec" under a minute.
func FormatDuration(d time.Duration) string {
	if d >= time.Minute {
		mins := int(d / time.Minute)
		secs := (d - time.Duration(mins)*time.Minute).Seconds()
		return fmt.Sprintf("%d min %.2f sec", mins, secs)
	}
	return fmt.Sprintf("%.2f sec", d.Seconds())
}
