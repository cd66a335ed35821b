// Package importer loads Cegid CSV exports into their destination tables.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cegidsync/cegidsync/internal/model"
	"github.com/cegidsync/cegidsync/internal/schema"
)

// DefaultBatchSize is the number of records sent per insert.
const DefaultBatchSize = 1000

// Structured failure causes, reported through Result.Err.
var (
	ErrNoColumns     = errors.New("no columns found")
	ErrUnknownSchema = errors.New("schema not recognized")
	ErrRequiredField = errors.New("required field missing")
	ErrDuplicateKey  = errors.New("duplicate key")
)

// Writer is the slice of a store transaction the importer needs.
type Writer interface {
	Clear(ctx context.Context, table string) (int64, error)
	Insert(ctx context.Context, table string, columns []string, records []model.Record) error
}

// Options tunes an Importer.
type Options struct {
	BatchSize int
}

// Importer replaces a destination table with the contents of one CSV file.
type Importer struct {
	batchSize int
}

// New returns an Importer. A non-positive batch size falls back to
// DefaultBatchSize.
func New(opts Options) *Importer {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Importer{batchSize: size}
}

// BatchSize reports the effective insert batch size.
func (im *Importer) BatchSize() int { return im.batchSize }

// Result describes one import attempt.
type Result struct {
	Path      string
	Succeeded bool
	Records   int
	Rows      int // data rows read, including dropped blank rows
	Batches   int
	Table     string
	Entity    string
	Columns   []string
	Cleared   int64
	Encoding  string
	Delimiter rune
	Error     string
	Err       error
}

func (r *Result) fail(cause error, format string, args ...any) {
	r.Succeeded = false
	r.Err = cause
	r.Error = fmt.Sprintf(format, args...)
}

// Inspect reads and classifies path without writing anything. The returned
// Result carries the detected entity and the number of records the file maps
// to; Succeeded is false when the header is empty or unrecognized.
func (im *Importer) Inspect(path string) (Result, error) {
	res := Result{Path: path}
	sh, entity, ok, err := im.open(path, &res)
	if err != nil || !ok {
		return res, err
	}
	for range MapRows(sh.header, sh.rows, entity) {
		res.Records++
	}
	res.Succeeded = true
	return res, nil
}

// Import clears the table matching the file's header and loads its rows.
// Structured failures come back in the Result with a nil error; a non-nil
// error means the caller must roll back.
func (im *Importer) Import(ctx context.Context, w Writer, path string) (Result, error) {
	res := Result{Path: path}
	sh, entity, ok, err := im.open(path, &res)
	if err != nil || !ok {
		return res, err
	}

	res.Cleared, err = w.Clear(ctx, entity.Table)
	if err != nil {
		return res, fmt.Errorf("clearing %s: %w", entity.Table, err)
	}

	columns := entity.Columns()
	keys := make(map[string]int)
	batch := make([]model.Record, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.Insert(ctx, entity.Table, columns, batch); err != nil {
			return fmt.Errorf("inserting into %s: %w", entity.Table, err)
		}
		res.Records += len(batch)
		res.Batches++
		batch = make([]model.Record, 0, im.batchSize)
		return nil
	}

	for line, rec := range MapRows(sh.header, sh.rows, entity) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if f, missing := missingRequired(entity, rec); missing {
			res.fail(ErrRequiredField, "line %d: %s is required", line, f.Column)
			return res, im.reset(ctx, w, entity, &res)
		}
		if len(entity.UniqueKey) > 0 {
			key := rec.Key(entity.UniqueKey)
			if first, dup := keys[key]; dup {
				res.fail(ErrDuplicateKey, "line %d: duplicate of line %d", line, first)
				return res, im.reset(ctx, w, entity, &res)
			}
			keys[key] = line
		}
		batch = append(batch, rec)
		if len(batch) == im.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	res.Succeeded = true
	return res, nil
}

// open reads the file and detects its entity. ok is false for structured
// failures already recorded on res.
func (im *Importer) open(path string, res *Result) (*sheet, schema.Entity, bool, error) {
	sh, err := readSheet(path)
	if err != nil {
		return nil, schema.Entity{}, false, err
	}
	res.Encoding = sh.encoding
	res.Delimiter = sh.delimiter
	res.Columns = sh.header
	res.Rows = len(sh.rows)

	if len(sh.header) == 0 {
		res.fail(ErrNoColumns, "no columns found")
		return sh, schema.Entity{}, false, nil
	}
	entity, ok := schema.Detect(sh.header)
	if !ok {
		res.fail(ErrUnknownSchema, "schema not recognized, %s", schema.Guidance())
		return sh, schema.Entity{}, false, nil
	}
	res.Entity = entity.Name
	res.Table = entity.Table
	return sh, entity, true, nil
}

// reset empties the table again after a structured failure found mid-file.
func (im *Importer) reset(ctx context.Context, w Writer, e schema.Entity, res *Result) error {
	if _, err := w.Clear(ctx, e.Table); err != nil {
		return fmt.Errorf("clearing %s after failure: %w", e.Table, err)
	}
	res.Records = 0
	return nil
}

func missingRequired(e schema.Entity, rec model.Record) (model.Field, bool) {
	for _, f := range e.Fields {
		if !f.Required {
			continue
		}
		if _, ok := rec[f.Name]; !ok {
			return f, true
		}
	}
	return model.Field{}, false
}

// FileInfo describes a CSV file waiting in a tenant directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Listing is the content of a tenant directory.
type Listing struct {
	Files    []FileInfo
	Archived int // *.archive files left by the upstream extractor
}

// Scan lists the *.csv files (any case) directly under dir in directory order.
// Subdirectories and *.archive files are skipped. A missing directory is an
// error.
func Scan(dir string) (Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("reading %s: %w", dir, err)
	}
	return collect(dir, entries), nil
}

// collect skips entries that cannot be stat'ed, such as a file removed after
// the directory was read.
func collect(dir string, entries []fs.DirEntry) Listing {
	var l Listing
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasSuffix(name, ".archive") {
			l.Archived++
			continue
		}
		if !strings.HasSuffix(name, ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		l.Files = append(l.Files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return l
}
