package importer

import (
	"iter"

	"github.com/shopspring/decimal"

	"github.com/cegidsync/cegidsync/internal/coerce"
	"github.com/cegidsync/cegidsync/internal/model"
	"github.com/cegidsync/cegidsync/internal/schema"
)

type columnBinding struct {
	index int
	field model.Field
}

// bindColumns pairs header positions with entity fields. When a column name
// repeats, the rightmost occurrence wins.
func bindColumns(header []string, e schema.Entity) []columnBinding {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		if f, ok := e.Field(h); ok {
			byName[f.Name] = i
		}
	}
	var bindings []columnBinding
	for _, f := range e.Fields {
		if i, ok := byName[f.Name]; ok {
			bindings = append(bindings, columnBinding{index: i, field: f})
		}
	}
	return bindings
}

// MapRows yields one typed record per row, keyed by source line. Fields whose
// value is absent are left out, booleans are always set, and rows with no
// populated field are skipped. The sequence reads rows lazily and can be
// ranged over once per call.
func MapRows(header []string, rows []Row, e schema.Entity) iter.Seq2[int, model.Record] {
	bindings := bindColumns(header, e)
	return func(yield func(int, model.Record) bool) {
		for _, row := range rows {
			rec := mapRow(row.Fields, bindings)
			if len(rec) == 0 {
				continue
			}
			if !yield(row.Line, rec) {
				return
			}
		}
	}
}

func mapRow(fields []string, bindings []columnBinding) model.Record {
	rec := make(model.Record, len(bindings))
	for _, b := range bindings {
		raw := ""
		if b.index < len(fields) {
			raw = fields[b.index]
		}
		v, ok := coerce.Value(raw, b.field.Type)
		if !ok {
			continue
		}
		if d, isDec := v.(decimal.Decimal); isDec && b.field.Scale > 0 {
			v = d.Round(b.field.Scale)
		}
		rec[b.field.Name] = v
	}
	return rec
}
