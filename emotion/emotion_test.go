package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/aggregate"
	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/sample"
)

func TestClassifyStats(t *testing.T) {
	tests := []struct {
		name     string
		stats    aggregate.Stats
		expected State
	}{
		{"anxious", aggregate.Stats{HeartRateMean: 95, MovementMean: 20, HeartRateVariability: 6}, Anxious},
		{"anxious needs variability", aggregate.Stats{HeartRateMean: 95, MovementMean: 20, HeartRateVariability: 5}, Stressed},
		{"stressed", aggregate.Stats{HeartRateMean: 88, MovementMean: 12}, Stressed},
		{"stressed needs movement", aggregate.Stats{HeartRateMean: 88, MovementMean: 10}, Normal},
		{"calm", aggregate.Stats{HeartRateMean: 70, MovementMean: 2}, Calm},
		{"calm boundary is strict", aggregate.Stats{HeartRateMean: 75, MovementMean: 2}, Normal},
		{"high hr still", aggregate.Stats{HeartRateMean: 95, MovementMean: 2, HeartRateVariability: 10}, Normal},
		{"normal", aggregate.Stats{HeartRateMean: 80, MovementMean: 7}, Normal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyStats(tt.stats))
		})
	}
}

func TestWindowed_UnknownUntilFull(t *testing.T) {
	agg, err := aggregate.New(aggregate.DefaultWindowSize)
	require.NoError(t, err)
	classifier := Windowed{}

	for i := 0; i < 5; i++ {
		agg.Ingest(sample.NewHeartRate(60))
		if i < 4 {
			agg.Ingest(sample.NewAcceleration(1, 0, 0))
		}
		assert.Equal(t, Unknown, classifier.Classify(agg.Snapshot()))
	}

	agg.Ingest(sample.NewAcceleration(1, 0, 0))
	assert.Equal(t, Calm, classifier.Classify(agg.Snapshot()))
}

func TestWindowed_AnxiousFromSamples(t *testing.T) {
	agg, err := aggregate.New(aggregate.DefaultWindowSize)
	require.NoError(t, err)

	for _, hr := range []float64{85, 90, 95, 100, 105} {
		agg.Ingest(sample.NewHeartRate(hr))
		agg.Ingest(sample.NewAcceleration(10, 10, 10))
	}

	snap := agg.Snapshot()
	require.True(t, snap.HasEnoughData)
	assert.Equal(t, Anxious, Windowed{}.Classify(snap))
}

func TestClassifyHeartRate(t *testing.T) {
	tests := []struct {
		hr       float64
		expected State
	}{
		{91, Anxious},
		{90.1, Anxious},
		{90.0, Stressed},
		{86, Stressed},
		{85.0, Normal},
		{75.0, Normal},
		{74.9, Calm},
		{50, Calm},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyHeartRate(tt.hr), "hr=%v", tt.hr)
	}
}

func TestInstantaneous(t *testing.T) {
	c := Instantaneous{}
	assert.Equal(t, Unknown, c.Classify(aggregate.Snapshot{}))
	assert.Equal(t, Anxious, c.Classify(aggregate.Snapshot{HasHeartRate: true, LatestHeartRate: 91}))
	assert.Equal(t, Stressed, c.Classify(aggregate.Snapshot{HasHeartRate: true, LatestHeartRate: 90}))
}

func TestNew(t *testing.T) {
	tests := []struct {
		mode     Mode
		expected Mode
	}{
		{"", ModeWindowed},
		{ModeWindowed, ModeWindowed},
		{"INSTANTANEOUS", ModeInstantaneous},
	}
	for _, tt := range tests {
		c, err := New(tt.mode)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, c.Mode())
	}

	_, err := New("psychic")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Unknown.String())
	assert.Equal(t, "CALM", Calm.String())
	assert.Equal(t, "NORMAL", Normal.String())
	assert.Equal(t, "STRESSED", Stressed.String())
	assert.Equal(t, "ANXIOUS", Anxious.String())

	text, err := Anxious.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ANXIOUS", string(text))
}
