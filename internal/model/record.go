package model

import "strings"

// Record is one typed row ready for bulk insertion, keyed by field name.
// Absent fields are left out and end up NULL in the table.
type Record map[string]any

// Values returns the record values in column order, nil for absent fields.
func (r Record) Values(columns []string) []any {
	vals := make([]any, len(columns))
	for i, c := range columns {
		vals[i] = r[c]
	}
	return vals
}

// Key joins the values of the given fields into a comparable key.
// Absent fields contribute an empty segment.
func (r Record) Key(fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		if v, ok := r[f].(string); ok {
			parts[i] = v
		}
	}
	return strings.Join(parts, "\x1f")
}
