// Package config loads runtime settings from the environment and command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultAddr           = ":8080"
	DefaultTickInterval   = 500 * time.Millisecond
	DefaultInputSize      = 224
	DefaultScoreThreshold = 0.5
	DefaultHookTimeout    = 5 * time.Second
)

// Config holds runtime settings.
type Config struct {
	Addr           string
	CameraID       int
	TickInterval   time.Duration
	WebDir         string
	HookDir        string
	HookTimeout    time.Duration
	DetectorScript string
	InputSize      int
	ScoreThreshold float64
	Tray           bool
	LogLevel       string
}

// DataDir returns the per-user directory, ~/.moodflix.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".moodflix"
	}
	return filepath.Join(home, ".moodflix")
}

// Load reads MOODFLIX_* variables, then lets flags in args override them.
func Load(args []string) (Config, error) {
	env, err := fromEnv()
	if err != nil {
		return Config{}, err
	}

	cfg := env
	fs := flag.NewFlagSet("moodflix", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", env.Addr, "HTTP listen address")
	fs.IntVar(&cfg.CameraID, "camera", env.CameraID, "camera device id")
	fs.DurationVar(&cfg.TickInterval, "tick", env.TickInterval, "detection interval")
	fs.StringVar(&cfg.WebDir, "web", env.WebDir, "static web directory (embedded page when empty)")
	fs.StringVar(&cfg.HookDir, "hooks", env.HookDir, "mood hook directory")
	fs.DurationVar(&cfg.HookTimeout, "hook-timeout", env.HookTimeout, "hook execution timeout")
	fs.StringVar(&cfg.DetectorScript, "detector", env.DetectorScript, "expression service script")
	fs.IntVar(&cfg.InputSize, "input-size", env.InputSize, "face detector input size")
	fs.Float64Var(&cfg.ScoreThreshold, "score-threshold", env.ScoreThreshold, "face detector score threshold")
	fs.BoolVar(&cfg.Tray, "tray", env.Tray, "show system tray icon")
	fs.StringVar(&cfg.LogLevel, "log-level", env.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromEnv() (Config, error) {
	cfg := Config{
		Addr:           firstNonEmpty(os.Getenv("MOODFLIX_ADDR"), DefaultAddr),
		WebDir:         os.Getenv("MOODFLIX_WEB_DIR"),
		HookDir:        firstNonEmpty(os.Getenv("MOODFLIX_HOOK_DIR"), filepath.Join(DataDir(), "hooks")),
		DetectorScript: os.Getenv("MOODFLIX_DETECTOR_SCRIPT"),
		LogLevel:       firstNonEmpty(os.Getenv("MOODFLIX_LOG_LEVEL"), "info"),
	}

	var err error
	if cfg.CameraID, err = envInt("MOODFLIX_CAMERA", 0); err != nil {
		return Config{}, err
	}
	if cfg.TickInterval, err = envDuration("MOODFLIX_TICK", DefaultTickInterval); err != nil {
		return Config{}, err
	}
	if cfg.HookTimeout, err = envDuration("MOODFLIX_HOOK_TIMEOUT", DefaultHookTimeout); err != nil {
		return Config{}, err
	}
	if cfg.InputSize, err = envInt("MOODFLIX_INPUT_SIZE", DefaultInputSize); err != nil {
		return Config{}, err
	}
	if cfg.ScoreThreshold, err = envFloat("MOODFLIX_SCORE_THRESHOLD", DefaultScoreThreshold); err != nil {
		return Config{}, err
	}
	if cfg.Tray, err = envBool("MOODFLIX_TRAY", false); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cfg for values the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if c.CameraID < 0 {
		errs = append(errs, fmt.Errorf("camera id must not be negative, got %d", c.CameraID))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.HookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("hook timeout must be positive, got %s", c.HookTimeout))
	}
	// The tiny face detector only accepts strides of 32.
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		errs = append(errs, fmt.Errorf("input size must be a positive multiple of 32, got %d", c.InputSize))
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("score threshold must be within [0, 1], got %g", c.ScoreThreshold))
	}
	return errors.Join(errs...)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
