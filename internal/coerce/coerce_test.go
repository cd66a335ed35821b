package coerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cegidsync/cegidsync/internal/model"
)

func TestValue_BlankIsAbsent(t *testing.T) {
	for _, typ := range []model.FieldType{model.FieldText, model.FieldNumeric, model.FieldInteger, model.FieldDatetime} {
		for _, raw := range []string{"", "   ", "\t", `""`, `"  "`} {
			v, ok := Value(raw, typ)
			assert.False(t, ok, "Value(%q, %s) should be absent", raw, typ)
			assert.Nil(t, v)
		}
	}
}

func TestValue_BlankBooleanDefaultsFalse(t *testing.T) {
	v, ok := Value("  ", model.FieldBoolean)
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestValue_Boolean(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"1", true},
		{"TRUE", true},
		{"oui", true},
		{`"X"`, true},
		{"0", false},
		{"non", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		v, ok := Value(tt.raw, model.FieldBoolean)
		require.True(t, ok)
		assert.Equal(t, tt.want, v, "Value(%q)", tt.raw)
	}
}

func TestValue_NumericCommaEqualsPeriod(t *testing.T) {
	pairs := [][2]string{
		{"1234,56", "1234.56"},
		{"1500,50", "1500.50"},
		{"-0,01", "-0.01"},
		{"0,1", "0.1"},
		{`"42,00"`, "42.00"},
	}
	for _, p := range pairs {
		a, ok := Value(p[0], model.FieldNumeric)
		require.True(t, ok)
		b, ok := Value(p[1], model.FieldNumeric)
		require.True(t, ok)
		assert.True(t, a.(decimal.Decimal).Equal(b.(decimal.Decimal)), "%s vs %s", p[0], p[1])
	}
}

func TestValue_NumericExact(t *testing.T) {
	v, ok := Value("1234,56", model.FieldNumeric)
	require.True(t, ok)
	assert.Equal(t, "1234.56", v.(decimal.Decimal).StringFixed(2))

	// Float64 cannot hold this exactly; the decimal must.
	v, _ = Value("0,07", model.FieldNumeric)
	assert.Equal(t, "0.07", v.(decimal.Decimal).String())
}

func TestValue_NumericGarbageIsZero(t *testing.T) {
	for _, raw := range []string{"abc", "1.234,56", "12 000", "--1"} {
		v, ok := Value(raw, model.FieldNumeric)
		require.True(t, ok, raw)
		assert.True(t, v.(decimal.Decimal).IsZero(), "Value(%q) = %v", raw, v)
	}
}

func TestValue_Integer(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"42", 42},
		{"42.9", 42},
		{"-3.7", -3},
		{" 7 ", 7},
		{"1e3", 1000},
		{"1,5", 0},
		{"NaN", 0},
		{"inf", 0},
		{"seven", 0},
	}
	for _, tt := range tests {
		v, ok := Value(tt.raw, model.FieldInteger)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, v, "Value(%q)", tt.raw)
	}
}

func TestValue_Datetime(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-06-30 00:00:00", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"2025-06-30", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"06/30/2025 08:15:00", time.Date(2025, 6, 30, 8, 15, 0, 0, time.UTC)},
		{"06/30/2025", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"30/06/2025 08:15:00", time.Date(2025, 6, 30, 8, 15, 0, 0, time.UTC)},
		{"30/06/2025", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)},
		{`"2025-01-31"`, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		v, ok := Value(tt.raw, model.FieldDatetime)
		require.True(t, ok, tt.raw)
		assert.True(t, tt.want.Equal(v.(time.Time)), "Value(%q) = %v", tt.raw, v)
	}
}

func TestValue_DatetimeAmbiguousFollowsFormatOrder(t *testing.T) {
	v, ok := Value("03/04/2025", model.FieldDatetime)
	require.True(t, ok)
	ts := v.(time.Time)
	assert.Equal(t, time.March, ts.Month())
	assert.Equal(t, 4, ts.Day())
}

func TestValue_DatetimeUnparseableIsAbsent(t *testing.T) {
	for _, raw := range []string{"yesterday", "2025/06/30", "31-12-2025"} {
		v, ok := Value(raw, model.FieldDatetime)
		assert.False(t, ok, raw)
		assert.Nil(t, v)
	}
}

func TestValue_TextTrimsAndUnquotes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  E001 ", "E001"},
		{`"E001"`, "E001"},
		{`" E001 "`, "E001"},
		{`"say "hi""`, `say "hi"`},
		{`"`, `"`},
	}
	for _, tt := range tests {
		v, ok := Value(tt.raw, model.FieldText)
		require.True(t, ok)
		assert.Equal(t, tt.want, v, "Value(%q)", tt.raw)
	}
}

func TestValue_UnknownTypePassesText(t *testing.T) {
	v, ok := Value(` "abc" `, model.FieldType("binary"))
	require.True(t, ok)
	assert.Equal(t, "abc", v)
}
