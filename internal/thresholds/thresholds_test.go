package thresholds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestOutOfRange(t *testing.T) {
	tests := []struct {
		name            string
		value, min, max *float64
		want            bool
	}{
		{"no bounds", f(5), nil, nil, false},
		{"nil value with bounds", nil, f(10), f(20), false},
		{"below min", f(5), f(10), f(20), true},
		{"inside range", f(15), f(10), f(20), false},
		{"above max", f(25), f(10), f(20), true},
		{"no min inside", f(15), nil, f(20), false},
		{"no min above max", f(25), nil, f(20), true},
		{"no max below min", f(5), f(10), nil, true},
		{"equal to min", f(10), f(10), f(20), false},
		{"equal to max", f(20), f(10), f(20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutOfRange(tt.value, tt.min, tt.max))
		})
	}
}

func TestExpectedRange(t *testing.T) {
	assert.Equal(t, "-∞ - ∞", ExpectedRange(nil, nil))
	assert.Equal(t, "10 - ∞", ExpectedRange(f(10), nil))
	assert.Equal(t, "-∞ - 30", ExpectedRange(nil, f(30)))
	assert.Equal(t, "10.5 - 30", ExpectedRange(f(10.5), f(30)))
}
