// Package store is the persistence boundary: bulk delete, bulk insert and a
// transaction per unit of work.
package store

import (
	"context"

	"github.com/cegidsync/cegidsync/internal/model"
)

// Tx is one unit of work against the destination tables.
type Tx interface {
	// Clear deletes every row of table and returns how many were removed.
	Clear(ctx context.Context, table string) (int64, error)
	// Insert writes records into table. Fields missing from a record are NULL.
	Insert(ctx context.Context, table string, columns []string, records []model.Record) error
	Commit() error
	Rollback() error
}

// Store opens units of work and answers simple read-side questions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Count(ctx context.Context, table string) (int64, error)
	Close() error
}
