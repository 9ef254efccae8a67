// Package emotion classifies aggregated wristband readings into an emotional state.
package emotion

import (
	"fmt"
	"strings"

	"github.com/c360/moodlink/aggregate"
	"github.com/c360/moodlink/errors"
)

// State is a classified emotional state.
type State int

const (
	Unknown State = iota
	Calm
	Normal
	Stressed
	Anxious
)

// String returns the upper-case state name shown to users.
func (s State) String() string {
	switch s {
	case Calm:
		return "CALM"
	case Normal:
		return "NORMAL"
	case Stressed:
		return "STRESSED"
	case Anxious:
		return "ANXIOUS"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Thresholds shared by both classifiers. Comparisons are strict.
const (
	AnxiousHeartRate   = 90.0
	AnxiousMovement    = 15.0
	AnxiousVariability = 5.0

	StressedHeartRate = 85.0
	StressedMovement  = 10.0

	CalmHeartRate = 75.0
	CalmMovement  = 5.0
)

// Mode selects a classifier variant.
type Mode string

const (
	ModeWindowed      Mode = "windowed"
	ModeInstantaneous Mode = "instantaneous"
)

// Classifier maps a snapshot of the aggregator to a State. Implementations are
// pure and safe for concurrent use.
type Classifier interface {
	Classify(snap aggregate.Snapshot) State
	Mode() Mode
}

// New returns the classifier for mode. An empty mode selects ModeWindowed.
func New(mode Mode) (Classifier, error) {
	switch Mode(strings.ToLower(string(mode))) {
	case "", ModeWindowed:
		return Windowed{}, nil
	case ModeInstantaneous:
		return Instantaneous{}, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "emotion", "New",
			fmt.Sprintf("unknown classifier mode %q", mode))
	}
}

// Windowed classifies on window means and heart-rate variability. It returns
// Unknown until both windows are full.
type Windowed struct{}

// Mode returns ModeWindowed.
func (Windowed) Mode() Mode { return ModeWindowed }

// Classify applies the rules in order: anxious, stressed, calm, normal.
func (Windowed) Classify(snap aggregate.Snapshot) State {
	if !snap.HasEnoughData {
		return Unknown
	}
	return ClassifyStats(snap.Stats)
}

// ClassifyStats applies the windowed rules to precomputed stats.
func ClassifyStats(st aggregate.Stats) State {
	hr, move, variability := st.HeartRateMean, st.MovementMean, st.HeartRateVariability

	switch {
	case hr > AnxiousHeartRate && move > AnxiousMovement && variability > AnxiousVariability:
		return Anxious
	case hr > StressedHeartRate && move > StressedMovement:
		return Stressed
	case hr < CalmHeartRate && move < CalmMovement:
		return Calm
	default:
		return Normal
	}
}

// Instantaneous classifies on the latest heart-rate reading alone. It returns
// Unknown before the first reading.
type Instantaneous struct{}

// Mode returns ModeInstantaneous.
func (Instantaneous) Mode() Mode { return ModeInstantaneous }

// Classify applies the heart-rate thresholds to the latest reading.
func (Instantaneous) Classify(snap aggregate.Snapshot) State {
	if !snap.HasHeartRate {
		return Unknown
	}
	return ClassifyHeartRate(snap.LatestHeartRate)
}

// ClassifyHeartRate maps a single heart rate to a state.
func ClassifyHeartRate(hr float64) State {
	switch {
	case hr > AnxiousHeartRate:
		return Anxious
	case hr > StressedHeartRate:
		return Stressed
	case hr < CalmHeartRate:
		return Calm
	default:
		return Normal
	}
}
