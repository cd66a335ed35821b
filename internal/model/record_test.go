package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordValues(t *testing.T) {
	r := Record{"phc_salarie": "E001", "phc_montant": 12}
	got := r.Values([]string{"phc_salarie", "phc_cumulpaie", "phc_montant"})
	assert.Equal(t, []any{"E001", nil, 12}, got)
}

func TestRecordKey(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{"a": "E001", "b": "CP2025"}, "E001\x1fCP2025"},
		{Record{"a": "E001"}, "E001\x1f"},
		{Record{}, "\x1f"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.rec.Key([]string{"a", "b"}), "Key(%v)", tt.rec)
	}
}
