// Package recommend maps an emotional state to user-facing advice and an optional
// media action.
package recommend

import (
	"net/url"

	"github.com/c360/moodlink/emotion"
)

// Action tags understood by the UI collaborator.
const (
	TagCalmingMusic = "calming-music"
	TagFunnyVideo   = "funny-video"
)

const videoSearchURL = "https://www.youtube.com/results?search_query="

// Action is an optional follow-up the UI may offer, such as opening a video search.
type Action struct {
	Tag   string `json:"tag"`
	Query string `json:"query"`
	URL   string `json:"url"`
}

// Recommendation is the advice for one state. Action is nil when no follow-up applies.
type Recommendation struct {
	State  emotion.State `json:"state"`
	Text   string        `json:"text"`
	Action *Action       `json:"action,omitempty"`
}

// ActionTag returns the action tag, or "" when there is no action.
func (r Recommendation) ActionTag() string {
	if r.Action == nil {
		return ""
	}
	return r.Action.Tag
}

const (
	anxiousText = "Try this calming breathing exercise:\n" +
		"1. Breathe in for 4 seconds\n" +
		"2. Hold for 4 seconds\n" +
		"3. Breathe out for 4 seconds\n\n" +
		"Would you like to listen to calming music?"

	stressedText = "Take a short break:\n" +
		"1. Stand up and stretch\n" +
		"2. Drink some water\n" +
		"Would you like to watch something funny?"

	calmText    = "You seem relaxed! This is a good time for focused work or meditation."
	normalText  = "Everything looks good! Keep going!"
	unknownText = "Gathering more data..."
)

// Map returns the recommendation for state. It is total: unrecognised states get
// the Unknown text.
func Map(state emotion.State) Recommendation {
	switch state {
	case emotion.Anxious:
		return Recommendation{State: state, Text: anxiousText, Action: newAction(TagCalmingMusic, "calming music playlist")}
	case emotion.Stressed:
		return Recommendation{State: state, Text: stressedText, Action: newAction(TagFunnyVideo, "funny cats")}
	case emotion.Calm:
		return Recommendation{State: state, Text: calmText}
	case emotion.Normal:
		return Recommendation{State: state, Text: normalText}
	default:
		return Recommendation{State: emotion.Unknown, Text: unknownText}
	}
}

func newAction(tag, query string) *Action {
	return &Action{
		Tag:   tag,
		Query: query,
		URL:   videoSearchURL + url.QueryEscape(query),
	}
}
