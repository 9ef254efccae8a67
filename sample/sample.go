// Package sample defines the readings a wristband produces.
package sample

import (
	"fmt"
	"math"
)

// Kind identifies which sensor produced a Sample.
type Kind int

const (
	// KindHeartRate is a heart-rate reading in beats per minute.
	KindHeartRate Kind = iota + 1
	// KindAcceleration is a three-axis accelerometer reading.
	KindAcceleration
)

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindHeartRate:
		return "heart_rate"
	case KindAcceleration:
		return "acceleration"
	default:
		return "unknown"
	}
}

// Sample is either a heart-rate reading or an acceleration vector.
// Only the fields matching Kind are meaningful.
type Sample struct {
	Kind Kind
	BPM  float64
	X    float64
	Y    float64
	Z    float64
}

// NewHeartRate creates a heart-rate sample.
func NewHeartRate(bpm float64) Sample {
	return Sample{Kind: KindHeartRate, BPM: bpm}
}

// NewAcceleration creates an acceleration sample.
func NewAcceleration(x, y, z float64) Sample {
	return Sample{Kind: KindAcceleration, X: x, Y: y, Z: z}
}

// IsHeartRate reports whether s carries a heart-rate value.
func (s Sample) IsHeartRate() bool { return s.Kind == KindHeartRate }

// IsAcceleration reports whether s carries an acceleration vector.
func (s Sample) IsAcceleration() bool { return s.Kind == KindAcceleration }

// Magnitude returns the Euclidean norm of the acceleration vector, or 0 for
// heart-rate samples.
func (s Sample) Magnitude() float64 {
	if s.Kind != KindAcceleration {
		return 0
	}
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

func (s Sample) String() string {
	switch s.Kind {
	case KindHeartRate:
		return fmt.Sprintf("HR %.1f", s.BPM)
	case KindAcceleration:
		return fmt.Sprintf("ACC %.2f,%.2f,%.2f", s.X, s.Y, s.Z)
	default:
		return "invalid sample"
	}
}
