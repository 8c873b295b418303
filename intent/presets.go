package intent

import "time"

const (
	MoodHappy    = "happy"
	MoodRelaxing = "relaxing"
)

type LightMode string

const (
	// LightsUnchanged leaves the lights alone.
	LightsUnchanged LightMode = ""
	LightsColor     LightMode = "color"
	// LightsParty cycles random colors every PartyInterval.
	LightsParty LightMode = "party"
)

// Preset is what a mood looks and sounds like.
type Preset struct {
	Lights        LightMode
	PartyInterval time.Duration
	Hue           int
	Saturation    int
	Brightness    int
	Playlist      []string
}

func DefaultPresets() map[string]Preset {
	return map[string]Preset{
		MoodHappy: {
			Lights:        LightsParty,
			PartyInterval: time.Second,
			Saturation:    254,
			Brightness:    254,
		},
		MoodRelaxing: {
			Lights:     LightsColor,
			Hue:        8000,
			Saturation: 140,
			Brightness: 90,
		},
	}
}

// rideIntents ask for a ride; ordering one is out of scope, so they are logged.
var rideIntents = map[string]bool{
	"cab":       true,
	"car":       true,
	"batmobile": true,
}

// MoodFromIntent maps an intent to the mood it implies, or "" for none.
func MoodFromIntent(intent string) string {
	switch {
	case intent == "dance":
		return MoodHappy
	case rideIntents[intent]:
		return MoodRelaxing
	case intent == "chill":
		return MoodRelaxing
	}

	return ""
}
