// Package batch runs one import pass over every configured tenant directory.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cegidsync/cegidsync/internal/importer"
	"github.com/cegidsync/cegidsync/internal/store"
)

// Tenant is a company whose Cegid exports land in Dir.
type Tenant struct {
	Name string
	Dir  string
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the event receiver.
func WithSink(s Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller walks tenants in order and imports each CSV file in its own
// transaction.
type Controller struct {
	store    store.Store
	importer *importer.Importer
	tenants  []Tenant
	sink     Sink
	now      func() time.Time
}

// New returns a Controller. A nil importer uses the default options.
func New(st store.Store, im *importer.Importer, tenants []Tenant, opts ...Option) *Controller {
	if im == nil {
		im = importer.New(importer.Options{})
	}
	c := &Controller{
		store:    st,
		importer: im,
		tenants:  tenants,
		sink:     discard{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run performs one pass. It reports false only when the run cannot start;
// per-file and per-tenant failures are reported through the sink. Run never
// panics.
func (c *Controller) Run(ctx context.Context) (completed bool) {
	if c == nil || c.store == nil {
		return false
	}

	sum := Summary{RunID: uuid.NewString(), Started: c.now()}
	defer func() {
		if r := recover(); r != nil {
			sum.Panic = fmt.Sprint(r)
		}
		sum.Elapsed = c.now().Sub(sum.Started)
		c.emitSummary(sum)
		completed = true
	}()

	for _, t := range c.tenants {
		if ctx.Err() != nil {
			break
		}
		sum.Tenants++
		c.runTenant(ctx, t, &sum)
	}
	return true
}

func (c *Controller) runTenant(ctx context.Context, t Tenant, sum *Summary) {
	ev := TenantEvent{RunID: sum.RunID, Tenant: t.Name, Dir: t.Dir}
	if strings.TrimSpace(t.Dir) == "" {
		ev.Status = TenantSkipped
		c.sink.Tenant(ev)
		return
	}

	listing, err := importer.Scan(t.Dir)
	if err != nil {
		ev.Status = TenantFailed
		ev.Err = err
		c.sink.Tenant(ev)
		return
	}
	ev.Status = TenantScanned
	ev.Files = len(listing.Files)
	ev.Archived = listing.Archived
	c.sink.Tenant(ev)

	for _, f := range listing.Files {
		if ctx.Err() != nil {
			return
		}
		fe, finished := c.runFile(ctx, t, f)
		if !finished {
			return
		}
		fe.RunID = sum.RunID
		c.sink.File(fe)
		if fe.Failed() {
			sum.Errored++
			sum.Failures = append(sum.Failures, fe)
			continue
		}
		sum.Imported++
		sum.Records += fe.Result.Records
		sum.Successes = append(sum.Successes, fe)
	}
}

// runFile imports one file in its own transaction. finished is false when ctx
// was cancelled mid-file: the transaction is rolled back, the file stays where
// it is for the next run and no event is emitted.
func (c *Controller) runFile(ctx context.Context, t Tenant, f importer.FileInfo) (ev FileEvent, finished bool) {
	ev = FileEvent{Tenant: t.Name, File: f.Name, Size: f.Size, Started: c.now()}
	defer func() { ev.Duration = c.now().Sub(ev.Started) }()

	tx, err := c.store.Begin(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ev, false
		}
		c.fault(&ev, f.Path, fmt.Errorf("starting transaction: %w", err))
		return ev, true
	}

	res, err := c.importFile(ctx, tx, f.Path)
	ev.Result = res
	if err != nil {
		_ = tx.Rollback()
		if ctx.Err() != nil {
			return ev, false
		}
		c.fault(&ev, f.Path, err)
		return ev, true
	}

	if ctx.Err() != nil {
		_ = tx.Rollback()
		return ev, false
	}

	// A structured failure still commits: the table stays cleared.
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		if ctx.Err() != nil {
			return ev, false
		}
		c.fault(&ev, f.Path, fmt.Errorf("committing: %w", err))
		return ev, true
	}

	if !res.Succeeded {
		ev.Outcome = Rejected
		ev.Dest, ev.RouteErr = importer.Route(f.Path, importer.Anomaly, c.now())
		return ev, true
	}

	// The rows are committed; a failed move leaves the file in place and the
	// next run reloads it.
	dest, err := importer.Route(f.Path, importer.Archive, c.now())
	if err != nil {
		ev.Outcome = Unarchived
		ev.Err = fmt.Errorf("archiving: %w", err)
		return ev, true
	}
	ev.Outcome = Imported
	ev.Dest = dest
	return ev, true
}

// importFile converts a panic inside the import into an error so the caller
// rolls back.
func (c *Controller) importFile(ctx context.Context, tx store.Tx, path string) (res importer.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during import: %v", r)
		}
	}()
	return c.importer.Import(ctx, tx, path)
}

func (c *Controller) fault(ev *FileEvent, path string, err error) {
	ev.Outcome = Faulted
	ev.Err = err
	ev.Dest, ev.RouteErr = importer.Route(path, importer.Anomaly, c.now())
}

func (c *Controller) emitSummary(sum Summary) {
	defer func() { _ = recover() }()
	c.sink.Summary(sum)
}
