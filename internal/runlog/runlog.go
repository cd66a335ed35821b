// Package runlog keeps a CSV history of every file processed by a run.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cegidsync/cegidsync/internal/batch"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp time.Time
	RunID     string
	Tenant    string
	File      string
	Outcome   string
	Table     string
	Records   int
	Error     string
}

// Header is the CSV header of the run log.
const Header = "timestamp,run_id,tenant,file,outcome,table,records,error"

const (
	numFields    = 8
	colTimestamp = 0
	colRunID     = 1
	colTenant    = 2
	colFile      = 3
	colOutcome   = 4
	colTable     = 5
	colRecords   = 6
	colError     = 7
)

// FromEvent converts a file event into a log entry.
func FromEvent(e batch.FileEvent) Entry {
	return Entry{
		Timestamp: e.Started,
		RunID:     e.RunID,
		Tenant:    e.Tenant,
		File:      e.File,
		Outcome:   string(e.Outcome),
		Table:     e.Result.Table,
		Records:   e.Result.Records,
		Error:     e.Message(),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colTenant] = e.Tenant
	row[colFile] = e.File
	row[colOutcome] = e.Outcome
	row[colTable] = e.Table
	row[colRecords] = strconv.Itoa(e.Records)
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	records, err := strconv.Atoi(record[colRecords])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing records %q: %w", record[colRecords], err)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		Tenant:    record[colTenant],
		File:      record[colFile],
		Outcome:   record[colOutcome],
		Table:     record[colTable],
		Records:   records,
		Error:     record[colError],
	}, nil
}

// Append writes entries to path, creating the file, its directory and the
// header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating run log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from path, or nil if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// LastRun returns the entries of the most recent run recorded in path.
func LastRun(path string) ([]Entry, error) {
	entries, err := Read(path)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	last := entries[len(entries)-1].RunID
	var run []Entry
	for _, e := range entries {
		if e.RunID == last {
			run = append(run, e)
		}
	}
	return run, nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Sink buffers the file events of a run and appends them to the log when the
// run's summary arrives.
type Sink struct {
	path    string
	log     logrus.FieldLogger
	pending []Entry
}

// NewSink returns a Sink writing to path. Write failures are logged, not
// returned, so a broken log never stops an import.
func NewSink(path string, log logrus.FieldLogger) *Sink {
	return &Sink{path: path, log: log}
}

func (s *Sink) Tenant(batch.TenantEvent) {}

func (s *Sink) File(e batch.FileEvent) {
	s.pending = append(s.pending, FromEvent(e))
}

func (s *Sink) Summary(batch.Summary) {
	entries := s.pending
	s.pending = nil
	if len(entries) == 0 {
		return
	}
	if err := Append(s.path, entries); err != nil && s.log != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("run log not written")
	}
}
