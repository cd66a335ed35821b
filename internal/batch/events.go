package batch

import (
	"time"

	"github.com/cegidsync/cegidsync/internal/importer"
)

// Outcome classifies what happened to one file.
type Outcome string

const (
	// Imported files were loaded and archived.
	Imported Outcome = "imported"
	// Rejected files failed a structured check and were quarantined.
	Rejected Outcome = "rejected"
	// Faulted files hit an unexpected error; their transaction was rolled back.
	Faulted Outcome = "faulted"
	// Unarchived files were loaded and committed but could not be moved to the
	// archive; they stay in the tenant folder.
	Unarchived Outcome = "unarchived"
)

// TenantStatus classifies a tenant visit.
type TenantStatus string

const (
	TenantScanned TenantStatus = "scanned"
	TenantSkipped TenantStatus = "skipped"
	TenantFailed  TenantStatus = "failed"
)

// TenantEvent is emitted once per configured tenant, before its files.
type TenantEvent struct {
	RunID    string
	Tenant   string
	Dir      string
	Status   TenantStatus
	Files    int
	Archived int
	Err      error
}

// FileEvent is emitted once per CSV file.
type FileEvent struct {
	RunID    string
	Tenant   string
	File     string
	Size     int64
	Outcome  Outcome
	Result   importer.Result
	Dest     string // routed location, empty if the move failed
	Err      error  // fault, if any
	RouteErr error  // quarantine move failure after a fault
	Started  time.Time
	Duration time.Duration
}

// Failed reports whether the file did not end up imported and archived.
func (e FileEvent) Failed() bool { return e.Outcome != Imported }

// Message is the failure text shown to operators.
func (e FileEvent) Message() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Result.Error != "":
		return e.Result.Error
	}
	return ""
}

// Summary closes a run.
type Summary struct {
	RunID     string
	Started   time.Time
	Elapsed   time.Duration
	Tenants   int
	Imported  int
	Errored   int
	Records   int
	Successes []FileEvent
	Failures  []FileEvent
	Panic     string // set when the run itself was cut short by a panic
}

// Sink receives run events in order: for each tenant a TenantEvent followed by
// its FileEvents, then one Summary.
type Sink interface {
	Tenant(TenantEvent)
	File(FileEvent)
	Summary(Summary)
}

// Sinks fans events out to several sinks in order.
type Sinks []Sink

func (s Sinks) Tenant(e TenantEvent) {
	for _, sink := range s {
		sink.Tenant(e)
	}
}

func (s Sinks) File(e FileEvent) {
	for _, sink := range s {
		sink.File(e)
	}
}

func (s Sinks) Summary(e Summary) {
	for _, sink := range s {
		sink.Summary(e)
	}
}

type discard struct{}

func (discard) Tenant(TenantEvent) {}
func (discard) File(FileEvent)     {}
func (discard) Summary(Summary)    {}
