package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMagnitude(t *testing.T) {
	tests := []struct {
		name     string
		sample   Sample
		expected float64
	}{
		{"3-4-0 triangle", NewAcceleration(3, 4, 0), 5},
		{"zero vector", NewAcceleration(0, 0, 0), 0},
		{"negative components", NewAcceleration(-2, -3, -6), 7},
		{"heart rate has none", NewHeartRate(80), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.sample.Magnitude(), 1e-9)
		})
	}
}

func TestKind(t *testing.T) {
	hr := NewHeartRate(72.5)
	acc := NewAcceleration(1, 2, 3)

	assert.True(t, hr.IsHeartRate())
	assert.False(t, hr.IsAcceleration())
	assert.True(t, acc.IsAcceleration())
	assert.Equal(t, "heart_rate", hr.Kind.String())
	assert.Equal(t, "acceleration", acc.Kind.String())
	assert.Equal(t, "unknown", Kind(0).String())
	assert.Equal(t, "HR 72.5", hr.String())
	assert.Equal(t, "ACC 1.00,2.00,3.00", acc.String())
}
