package app

import (
	"sync"
	"time"

	"github.com/ayusman/moodflix/internal/emotion"
	"github.com/ayusman/moodflix/internal/theme"
)

// State is a point-in-time copy of the mood cell.
type State struct {
	Label     emotion.Label
	Ready     bool
	Err       error
	UpdatedAt time.Time
}

// MoodEvent describes a label change.
type MoodEvent struct {
	Label    emotion.Label `json:"mood"`
	Previous emotion.Label `json:"previous"`
	Theme    theme.Theme   `json:"theme"`
	At       time.Time     `json:"at"`
}

// Mood holds the current label. It starts at neutral and not ready.
type Mood struct {
	mu    sync.RWMutex
	state State
}

// NewMood returns a cell holding neutral.
func NewMood() *Mood {
	return &Mood{state: State{Label: emotion.Neutral}}
}

// State returns a copy of the cell.
func (m *Mood) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Label returns the current label.
func (m *Mood) Label() emotion.Label {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Label
}

// set stores label and reports the label it replaced and whether it differs.
func (m *Mood) set(label emotion.Label, at time.Time) (emotion.Label, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state.Label
	m.state.Label = label
	m.state.UpdatedAt = at
	return prev, prev != label
}

func (m *Mood) setReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Ready = ready
	if ready {
		m.state.Err = nil
	}
}

// fail records an initialization error. The label is left as it was.
func (m *Mood) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Ready = false
	m.state.Err = err
}
