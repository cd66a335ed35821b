// Package coerce turns raw CSV cells into typed values.
//
// Coercion is lenient: numbers that do not parse become zero and dates that
// do not parse become absent. Nothing here returns an error.
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cegidsync/cegidsync/internal/model"
)

// DateFormats are tried in order; the first that parses wins. A value such as
// 03/04/2025 therefore reads as March 4th, never April 3rd.
var DateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

var truthy = map[string]bool{
	"1": true, "true": true, "t": true, "yes": true, "y": true,
	"oui": true, "o": true, "x": true,
}

// Value converts raw to the Go value stored for a field of type t.
// ok is false when the value is absent (blank cell, unparseable date).
// Booleans are never absent: a blank cell reads as false.
func Value(raw string, t model.FieldType) (any, bool) {
	s := Clean(raw)
	if s == "" {
		if t == model.FieldBoolean {
			return false, true
		}
		return nil, false
	}

	switch t {
	case model.FieldNumeric:
		return Numeric(s), true
	case model.FieldInteger:
		return Integer(s), true
	case model.FieldDatetime:
		ts, ok := Datetime(s)
		if !ok {
			return nil, false
		}
		return ts, true
	case model.FieldBoolean:
		return truthy[strings.ToLower(s)], true
	default:
		return s, true
	}
}

// Clean trims s and strips a single pair of wrapping double quotes.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// Numeric parses s as a decimal, accepting a comma as decimal separator.
// Unparseable input yields zero.
func Numeric(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Integer parses s through a float and truncates toward zero.
// Unparseable or non-finite input yields zero.
func Integer(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}

// Datetime parses s against DateFormats.
func Datetime(s string) (time.Time, bool) {
	for _, layout := range DateFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
