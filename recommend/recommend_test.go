package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/emotion"
)

func TestMap(t *testing.T) {
	tests := []struct {
		state     emotion.State
		tag       string
		textStart string
	}{
		{emotion.Anxious, TagCalmingMusic, "Try this calming breathing exercise"},
		{emotion.Stressed, TagFunnyVideo, "Take a short break"},
		{emotion.Calm, "", "You seem relaxed!"},
		{emotion.Normal, "", "Everything looks good!"},
		{emotion.Unknown, "", "Gathering more data..."},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			rec := Map(tt.state)
			assert.Equal(t, tt.state, rec.State)
			assert.Equal(t, tt.tag, rec.ActionTag())
			assert.Contains(t, rec.Text, tt.textStart)
			if tt.tag == "" {
				assert.Nil(t, rec.Action)
			}
		})
	}
}

func TestMap_ActionURL(t *testing.T) {
	rec := Map(emotion.Anxious)
	require.NotNil(t, rec.Action)
	assert.Equal(t, "calming music playlist", rec.Action.Query)
	assert.Equal(t, "https://www.youtube.com/results?search_query=calming+music+playlist", rec.Action.URL)

	rec = Map(emotion.Stressed)
	require.NotNil(t, rec.Action)
	assert.Equal(t, "funny cats", rec.Action.Query)
}

func TestMap_UnrecognisedStateIsUnknown(t *testing.T) {
	rec := Map(emotion.State(42))
	assert.Equal(t, emotion.Unknown, rec.State)
	assert.Equal(t, "Gathering more data...", rec.Text)
}
