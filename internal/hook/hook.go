// Package hook runs user-supplied executables when the displayed mood changes.
package hook

import (
	"encoding/json"

	"github.com/ayusman/moodflix/internal/emotion"
	"github.com/ayusman/moodflix/internal/theme"
)

// ManifestFile is the manifest name expected in every hook directory.
const ManifestFile = "hook.json"

// AnyMood in a manifest's moods list matches every label.
const AnyMood = "*"

// Manifest describes a hook and the moods it reacts to.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Moods       []string        `json:"moods"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the hook's stdin as JSON.
type Request struct {
	Mood     emotion.Label   `json:"mood"`
	Previous emotion.Label   `json:"previous"`
	Theme    theme.Theme     `json:"theme"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Matches reports whether the hook wants to run for label.
func (h *Hook) Matches(label emotion.Label) bool {
	for _, m := range h.Manifest.Moods {
		if m == AnyMood || emotion.Label(m) == label {
			return true
		}
	}
	return false
}
