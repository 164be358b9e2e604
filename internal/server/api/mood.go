package api

import (
	"net/http"
	"time"

	"github.com/ayusman/moodflix/internal/app"
	"github.com/ayusman/moodflix/internal/emotion"
	"github.com/ayusman/moodflix/internal/theme"
)

// MoodSource exposes the current mood state.
type MoodSource interface {
	State() app.State
}

// MoodResponse is the JSON form of the mood state. The websocket pushes the
// same shape.
type MoodResponse struct {
	Mood      emotion.Label `json:"mood"`
	Ready     bool          `json:"ready"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
	Theme     theme.Theme   `json:"theme"`
}

// NewMoodResponse converts state, resolving its theme.
func NewMoodResponse(state app.State) MoodResponse {
	resp := MoodResponse{
		Mood:  state.Label,
		Ready: state.Ready,
		Theme: theme.Resolve(state.Label),
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	if !state.UpdatedAt.IsZero() {
		at := state.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}

// MoodHandler serves GET /api/mood.
type MoodHandler struct {
	source MoodSource
}

// NewMoodHandler creates a MoodHandler reading from source.
func NewMoodHandler(source MoodSource) *MoodHandler {
	return &MoodHandler{source: source}
}

func (h *MoodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, NewMoodResponse(h.source.State()))
}

type themesResponse struct {
	Themes []theme.Theme `json:"themes"`
}

// ThemesHandler serves GET /api/themes.
type ThemesHandler struct{}

// NewThemesHandler creates a ThemesHandler.
func NewThemesHandler() *ThemesHandler {
	return &ThemesHandler{}
}

func (h *ThemesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, themesResponse{Themes: theme.All()})
}
