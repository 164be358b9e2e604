// Package tray shows the current mood in the system tray.
package tray

import (
	"strings"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/moodflix/internal/emotion"
)

// refreshInterval is how often the toggle title is synced with the source
// set by Follow.
const refreshInterval = time.Second

// Tray is the system tray menu.
type Tray struct {
	source   func() bool
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	mood     emotion.Label
	mu       sync.RWMutex

	menuToggle *systray.MenuItem
	menuMood   *systray.MenuItem
}

// New creates a Tray with detection shown as enabled and a neutral mood.
func New() *Tray {
	return &Tray{
		enabled: true,
		mood:    emotion.Neutral,
	}
}

// OnToggle sets the callback run when detection is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// Follow makes isEnabled the authority for the detection state, so a change
// made elsewhere (the HTTP API) shows up in the menu and the next toggle
// flips the real state.
func (t *Tray) Follow(isEnabled func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source = isEnabled
}

// OnOpen sets the callback run when "Open in browser" is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run when Quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit is called and must run on the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Moodflix")
	systray.SetTooltip("Moodflix")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle expression detection")
	systray.AddSeparator()
	t.menuMood = systray.AddMenuItem(moodTitle(t.mood), "Current mood")
	t.menuMood.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in browser", "Open the Moodflix page")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Moodflix")

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	current := t.enabled
	if t.source != nil {
		current = t.source()
	}
	enabled := !current
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

// refresh pulls the enabled state from the source and updates the menu when
// it changed.
func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.source == nil {
		return
	}
	enabled := t.source()
	if enabled == t.enabled {
		return
	}
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetMood updates the mood line of the menu.
func (t *Tray) SetMood(label emotion.Label) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mood = label
	if t.menuMood != nil {
		t.menuMood.SetTitle(moodTitle(label))
	}
}

// Mood returns the mood last shown.
func (t *Tray) Mood() emotion.Label {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mood
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func moodTitle(label emotion.Label) string {
	if label == "" {
		return "Mood: none"
	}
	return "Mood: " + strings.ToUpper(string(label))
}
