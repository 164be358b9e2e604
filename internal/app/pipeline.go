package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/moodflix/internal/emotion"
	"github.com/ayusman/moodflix/internal/hook"
	"github.com/ayusman/moodflix/internal/log"
	"github.com/ayusman/moodflix/internal/theme"
)

// run ticks until stop is closed. A tick that overruns the interval makes the
// ticker drop the missed ticks; nothing is queued.
func (a *App) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Tick runs one detection cycle: read a frame, detect faces, select a label
// for the first face and store it. It returns the current label and whether
// it changed. When detection is disabled, no face is found or any step
// fails, the previous label is kept.
func (a *App) Tick() (emotion.Label, bool, error) {
	a.tickMu.Lock()
	defer a.tickMu.Unlock()

	current := a.mood.Label()
	if !a.IsEnabled() {
		return current, false, nil
	}

	a.mu.RLock()
	cam, det, policy := a.camera, a.detector, a.policy
	a.mu.RUnlock()

	ctx := context.Background()
	tick := uuid.NewString()

	frame, err := cam.ReadFrame()
	if err != nil {
		log.Warn(ctx, "read frame failed", "tick", tick, "err", err)
		return current, false, fmt.Errorf("read frame: %w", err)
	}

	faces, err := det.Detect(frame)
	frame.Close()
	if err != nil {
		log.Warn(ctx, "detection failed", "tick", tick, "err", err)
		return current, false, fmt.Errorf("detect: %w", err)
	}

	if len(faces) == 0 {
		log.Debug(ctx, "no face", "tick", tick)
		return current, false, nil
	}

	label, err := policy.Select(faces[0].Expressions)
	if err != nil {
		log.Warn(ctx, "selection rejected", "tick", tick, "err", err)
		return current, false, err
	}

	now := time.Now()
	prev, changed := a.mood.set(label, now)
	log.Debug(ctx, "tick", "tick", tick, "faces", len(faces), "mood", label)

	if changed {
		log.Info(ctx, "mood changed", "tick", tick, "from", prev, "to", label)
		a.publish(MoodEvent{
			Label:    label,
			Previous: prev,
			Theme:    theme.Resolve(label),
			At:       now,
		})
	}

	return label, changed, nil
}

// publish notifies subscribers and starts matching hooks. No lock is held
// while callbacks run.
func (a *App) publish(ev MoodEvent) {
	a.subMu.Lock()
	subs := make([]func(MoodEvent), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}

	a.runHooks(ev)
}

// runHooks executes every hook registered for the new label in the background.
func (a *App) runHooks(ev MoodEvent) {
	for _, h := range a.hookMgr.Match(ev.Label) {
		a.hooks.Add(1)
		go func(h *hook.Hook) {
			defer a.hooks.Done()

			ctx := context.Background()
			resp, err := a.hookExec.Execute(ctx, h, &hook.Request{
				Mood:     ev.Label,
				Previous: ev.Previous,
				Theme:    ev.Theme,
			})
			if err != nil {
				log.Warn(ctx, "hook failed", "hook", h.Manifest.Name, "err", err)
				return
			}
			if !resp.Success {
				log.Warn(ctx, "hook reported failure", "hook", h.Manifest.Name, "error", resp.Error)
				return
			}
			log.Debug(ctx, "hook ran", "hook", h.Manifest.Name, "mood", ev.Label)
		}(h)
	}
}
