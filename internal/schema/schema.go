// Package schema holds the Cegid export signatures and detects which
// destination table a CSV header describes.
package schema

import (
	"sort"
	"strings"

	"github.com/cegidsync/cegidsync/internal/model"
)

// Entity is one destination table and the CSV columns that feed it.
type Entity struct {
	Name      string // short Cegid table name, e.g. "histocumsal"
	Label     string
	Table     string
	Prefix    string // column prefix shown in operator guidance
	Fields    []model.Field
	UniqueKey []string // field names; empty when the table has no natural key
}

// Signature returns the sorted set of CSV column names for e.
func (e Entity) Signature() []string {
	sig := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		sig[i] = f.Column
	}
	sort.Strings(sig)
	return sig
}

// Columns returns the table column names in declaration order.
func (e Entity) Columns() []string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Field returns the field fed by the given CSV column (case-insensitive).
func (e Entity) Field(column string) (model.Field, bool) {
	column = normalize(column)
	for _, f := range e.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return model.Field{}, false
}

// Detect returns the first entity, in Entities order, whose signature either
// contains every observed column or is contained in them.
//
// Matching is by containment, not by best score: when two signatures could
// both match a header, the earlier entity wins.
func Detect(columns []string) (Entity, bool) {
	observed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		observed[normalize(c)] = struct{}{}
	}

	for _, e := range Entities {
		sig := make(map[string]struct{}, len(e.Fields))
		for _, f := range e.Fields {
			sig[f.Column] = struct{}{}
		}
		if subset(sig, observed) || subset(observed, sig) {
			return e, true
		}
	}
	return Entity{}, false
}

// ByName returns the entity with the given short name or table name.
func ByName(name string) (Entity, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range Entities {
		if e.Name == name || e.Table == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Guidance lists the expected column prefixes, for unrecognized-file messages.
func Guidance() string {
	parts := make([]string, len(Entities))
	for i, e := range Entities {
		parts[i] = e.Prefix + "* (" + e.Name + ")"
	}
	return "expected columns: " + strings.Join(parts, ", ")
}

func normalize(column string) string {
	return strings.ToUpper(strings.TrimSpace(column))
}

// subset reports whether every key of a is in b. An empty set is a subset of
// everything, so a header with no usable names matches the first entity; the
// importer rejects empty headers before detection.
func subset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
