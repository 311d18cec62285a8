package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pixels int32

func TestCoordinate(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want float64
		ok   bool
	}{
		{"float64", 12.5, 12.5, true},
		{"float32", float32(1.5), 1.5, true},
		{"int", 40, 40, true},
		{"int8", int8(-3), -3, true},
		{"int32", int32(240), 240, true},
		{"int64", int64(-150), -150, true},
		{"uint", uint(7), 7, true},
		{"uint16", uint16(300), 300, true},
		{"uint64", uint64(9), 9, true},
		{"named integer", pixels(64), 64, true},
		{"json number", json.Number("2.25"), 2.25, true},
		{"bad json number", json.Number("x"), 0, false},
		{"string", "10", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Coordinate(map[string]any{MetaX: tt.val}, MetaX)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Coordinate(nil, MetaY)
	assert.False(t, ok)
}
