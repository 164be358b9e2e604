package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/moodflix/internal/emotion"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	faces  []Face
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces ...Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// FaceWith returns a centred face carrying the given expressions.
func FaceWith(d emotion.Distribution) Face {
	return Face{
		Box:         Box{X: 220, Y: 140, Width: 200, Height: 200},
		Score:       0.92,
		Expressions: d,
	}
}

// HappyFace returns a face whose expressions clearly favour happy.
func HappyFace() Face {
	return FaceWith(emotion.FromMap(map[emotion.Label]float64{
		emotion.Neutral:   0.05,
		emotion.Happy:     0.9,
		emotion.Sad:       0.01,
		emotion.Angry:     0.01,
		emotion.Fearful:   0.01,
		emotion.Disgusted: 0.01,
		emotion.Surprised: 0.01,
	}))
}

// NeutralFace returns a resting face dominated by neutral.
func NeutralFace() Face {
	return FaceWith(emotion.FromMap(map[emotion.Label]float64{
		emotion.Neutral:   0.82,
		emotion.Happy:     0.08,
		emotion.Sad:       0.04,
		emotion.Angry:     0.02,
		emotion.Fearful:   0.02,
		emotion.Disgusted: 0.01,
		emotion.Surprised: 0.01,
	}))
}

// FearfulFace returns a face where neutral still leads but fearful crosses
// the override threshold.
func FearfulFace() Face {
	return FaceWith(emotion.FromMap(map[emotion.Label]float64{
		emotion.Neutral:   0.55,
		emotion.Happy:     0.02,
		emotion.Sad:       0.08,
		emotion.Angry:     0.02,
		emotion.Fearful:   0.3,
		emotion.Disgusted: 0.01,
		emotion.Surprised: 0.02,
	}))
}

// AngryFace returns a face where angry crosses the override threshold.
func AngryFace() Face {
	return FaceWith(emotion.FromMap(map[emotion.Label]float64{
		emotion.Neutral:   0.6,
		emotion.Happy:     0.01,
		emotion.Sad:       0.05,
		emotion.Angry:     0.28,
		emotion.Fearful:   0.02,
		emotion.Disgusted: 0.03,
		emotion.Surprised: 0.01,
	}))
}
