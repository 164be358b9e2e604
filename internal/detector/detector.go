// Package detector defines the boundary to the external face expression model.
package detector

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/moodflix/internal/emotion"
)

// Detector finds faces in a frame and classifies their expressions.
type Detector interface {
	// Detect returns the faces found in frame, most prominent first.
	// Returns an empty slice if no face is detected.
	Detect(frame *gocv.Mat) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Box is a face bounding box in frame pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Face is one detected face with its expression probabilities.
type Face struct {
	Box         Box                  `json:"box"`
	Score       float64              `json:"score"`
	Expressions emotion.Distribution `json:"expressions"`
}

// Config holds options passed to the face detector.
type Config struct {
	// InputSize is the square size frames are scaled to (multiple of 32).
	InputSize int

	// ScoreThreshold drops face boxes scored below it (0.0-1.0).
	ScoreThreshold float64

	// Script overrides the expression service script location.
	Script string

	// ResponseTimeout bounds one frame exchange with the service.
	// Zero means DefaultResponseTimeout.
	ResponseTimeout time.Duration
}

// DefaultConfig returns the tiny face detector settings the UI was tuned with.
// A 224 input resolves subtle expressions such as fearful noticeably better
// than the model default of 160.
func DefaultConfig() Config {
	return Config{
		InputSize:      224,
		ScoreThreshold: 0.5,
	}
}
