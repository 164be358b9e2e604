// Package app runs the detection loop and owns the current mood.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/moodflix/internal/capture"
	"github.com/ayusman/moodflix/internal/detector"
	"github.com/ayusman/moodflix/internal/emotion"
	"github.com/ayusman/moodflix/internal/hook"
	"github.com/ayusman/moodflix/internal/log"
)

// Defaults used when the matching Config field is zero.
const (
	DefaultTickInterval = 500 * time.Millisecond
	DefaultHookTimeout  = 5 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	CameraID     int
	TickInterval time.Duration
	HookDir      string
	HookTimeout  time.Duration
	Detector     detector.Config
}

// App samples the camera on a fixed interval and keeps the mood cell current.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	policy   emotion.Policy
	mood     *Mood
	hookMgr  *hook.Manager
	hookExec *hook.Executor
	enabled  bool
	mu       sync.RWMutex
	stopCh   chan struct{}
	doneCh   chan struct{}

	// tickMu keeps Tick calls from overlapping.
	tickMu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]func(MoodEvent)
	nextID int

	hooks sync.WaitGroup
}

// New creates an App. Detection starts enabled. The expression service is
// used when it can be found, otherwise a detector that never reports a face.
func New(config Config) *App {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.HookTimeout <= 0 {
		config.HookTimeout = DefaultHookTimeout
	}
	if config.Detector.InputSize <= 0 {
		config.Detector = detector.DefaultConfig()
	}

	a := &App{
		config:   config,
		camera:   capture.NewCamera(config.CameraID),
		policy:   emotion.DefaultPolicy,
		mood:     NewMood(),
		hookMgr:  hook.NewManager(config.HookDir),
		hookExec: hook.NewExecutor(config.HookTimeout),
		enabled:  true,
		subs:     make(map[int]func(MoodEvent)),
	}

	if svc, err := detector.NewServiceDetector(config.Detector); err == nil {
		a.detector = svc
		log.Info(context.Background(), "using expression service", "input_size", config.Detector.InputSize)
	} else {
		log.Warn(context.Background(), "expression service not available, using mock detector", "err", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables detection. While disabled ticks are skipped
// and the label is retained.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the camera. Call it before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetPolicy replaces the selection policy.
func (a *App) SetPolicy(p emotion.Policy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.policy = p
}

// DiscoverHooks scans the hook directory.
func (a *App) DiscoverHooks() error {
	if a.config.HookDir == "" {
		return nil
	}
	return a.hookMgr.Discover()
}

// Subscribe registers fn to be called on every label change. The returned
// function removes it.
func (a *App) Subscribe(fn func(MoodEvent)) func() {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextID
	a.nextID++
	a.subs[id] = fn

	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subs, id)
	}
}

// Start opens the camera and begins ticking. Calling Start on a running App
// does nothing. A camera failure is recorded in the mood state and returned.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		a.mood.fail(err)
		log.Error(context.Background(), "camera init failed", "err", err)
		return err
	}
	a.mood.setReady(true)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(a.stopCh, a.doneCh)

	log.Info(context.Background(), "detection started", "interval", a.config.TickInterval)
	return nil
}

// Stop halts the loop, waits for running hooks and releases the camera and
// detector. The detector is closed before waiting for the loop so a tick
// stuck on an unresponsive model is aborted. It is safe to call more than
// once.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	det := a.detector
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if det != nil {
		if err := det.Close(); err != nil {
			log.Warn(context.Background(), "error closing detector", "err", err)
		}
	}
	if doneCh != nil {
		<-doneCh
	}
	a.hooks.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.mood.setReady(false)

	if err := a.camera.Close(); err != nil {
		log.Warn(context.Background(), "error closing camera", "err", err)
	}

	if stopCh != nil {
		log.Info(context.Background(), "detection stopped")
	}
}

// Running reports whether the tick loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Mood returns the mood cell.
func (a *App) Mood() *Mood {
	return a.mood
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// HookManager returns the hook manager.
func (a *App) HookManager() *hook.Manager {
	return a.hookMgr
}
