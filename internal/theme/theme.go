// Package theme maps a displayed mood to its visual style bundle.
package theme

import "github.com/ayusman/moodflix/internal/emotion"

// Theme holds the Tailwind classes the UI applies for one mood.
type Theme struct {
	Label          emotion.Label `json:"label"`
	Color          string        `json:"color"`
	Glow           string        `json:"glow"`
	BackgroundWash string        `json:"bg_wash"`
}

// DefaultLabel is the fallback when a mood has no theme of its own.
const DefaultLabel = emotion.Neutral

var catalogue = map[emotion.Label]Theme{
	emotion.Neutral: {
		Label:          emotion.Neutral,
		Color:          "text-[#E50914]",
		Glow:           "shadow-[inset_0_0_150px_rgba(229,9,20,0.3)]",
		BackgroundWash: "from-red-900/20",
	},
	emotion.Happy: {
		Label:          emotion.Happy,
		Color:          "text-[#FFFF00]",
		Glow:           "shadow-[inset_0_0_250px_rgba(255,255,0,0.5)]",
		BackgroundWash: "from-yellow-400/50",
	},
	emotion.Surprised: {
		Label:          emotion.Surprised,
		Color:          "text-[#FF00FF]",
		Glow:           "shadow-[inset_0_0_350px_rgba(255,0,255,0.6)]",
		BackgroundWash: "from-purple-600/50",
	},
	emotion.Sad: {
		Label:          emotion.Sad,
		Color:          "text-[#00BFFF]",
		Glow:           "shadow-[inset_0_0_200px_rgba(0,191,255,0.3)]",
		BackgroundWash: "from-blue-900/30",
	},
	emotion.Angry: {
		Label:          emotion.Angry,
		Color:          "text-[#FF3131]",
		Glow:           "shadow-[inset_0_0_250px_rgba(255,49,49,0.5)]",
		BackgroundWash: "from-red-600/40",
	},
	emotion.Fearful: {
		Label:          emotion.Fearful,
		Color:          "text-[#39FF14]",
		Glow:           "shadow-[inset_0_0_350px_rgba(57,255,20,0.5)]",
		BackgroundWash: "from-green-950/60",
	},
}

var order = []emotion.Label{
	emotion.Neutral,
	emotion.Happy,
	emotion.Surprised,
	emotion.Sad,
	emotion.Angry,
	emotion.Fearful,
}

// Resolve returns the theme for label, or the neutral theme when label has
// none (disgusted, or anything outside the model vocabulary).
func Resolve(label emotion.Label) Theme {
	if t, ok := catalogue[label]; ok {
		return t
	}
	return catalogue[DefaultLabel]
}

// Has reports whether label has a dedicated theme.
func Has(label emotion.Label) bool {
	_, ok := catalogue[label]
	return ok
}

// All returns every theme in display order.
func All() []Theme {
	themes := make([]Theme, 0, len(order))
	for _, l := range order {
		themes = append(themes, catalogue[l])
	}
	return themes
}
