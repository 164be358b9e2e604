// Package capture reads webcam frames for expression detection.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings. Two frames a second matches the 500ms
// detection tick, so the driver does not buffer stale frames.
const (
	DefaultFPS    = 2
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrEmptyFrame is returned when the device produced no image data.
	ErrEmptyFrame = errors.New("captured frame is empty")

	// ErrCameraLost is returned once a device keeps failing to deliver
	// frames, typically because it was unplugged or taken by another
	// process. The camera is closed and has to be reopened.
	ErrCameraLost = errors.New("camera stopped delivering frames")
)

// Camera is a source of video frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller must Close it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options tunes how a webcam is opened.
type Options struct {
	Width  int
	Height int
	FPS    int

	// Warmup frames are read and dropped after Open. Many webcams hand out
	// dark frames until auto exposure settles, which reads as a sad face.
	Warmup int

	// MaxFailures is how many reads in a row may fail before the device is
	// reported lost.
	MaxFailures int
}

// DefaultOptions returns 640x480 at DefaultFPS with a short warm-up.
func DefaultOptions() Options {
	return Options{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		FPS:         DefaultFPS,
		Warmup:      3,
		MaxFailures: 10,
	}
}

type webcam struct {
	deviceID int
	opts     Options

	mu       sync.Mutex
	device   *gocv.VideoCapture
	failures int
}

// NewCamera returns a Camera for the given video device id with
// DefaultOptions. The device is not touched until Open.
func NewCamera(deviceID int) Camera {
	return NewCameraWithOptions(deviceID, DefaultOptions())
}

// NewCameraWithOptions returns a Camera for deviceID. Zero fields in opts take
// their DefaultOptions value.
func NewCameraWithOptions(deviceID int, opts Options) Camera {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.FPS <= 0 {
		opts.FPS = def.FPS
	}
	if opts.Warmup < 0 {
		opts.Warmup = 0
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = def.MaxFailures
	}
	return &webcam{deviceID: deviceID, opts: opts}
}

func (c *webcam) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return nil
	}

	device, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}
	if !device.IsOpened() {
		device.Close()
		return fmt.Errorf("open camera %d: device could not be opened", c.deviceID)
	}

	device.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	device.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	device.Set(gocv.VideoCaptureFPS, float64(c.opts.FPS))
	// Only the newest frame matters; each tick should see the face as it is now.
	device.Set(gocv.VideoCaptureBufferSize, 1)

	if c.opts.Warmup > 0 {
		scratch := gocv.NewMat()
		for i := 0; i < c.opts.Warmup; i++ {
			device.Read(&scratch)
		}
		scratch.Close()
	}

	c.device = device
	c.failures = 0
	return nil
}

func (c *webcam) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.release()
}

func (c *webcam) release() error {
	if c.device == nil {
		return nil
	}
	err := c.device.Close()
	c.device = nil
	return err
}

// ReadFrame grabs a single frame. After MaxFailures failed reads in a row the
// device is released and ErrCameraLost returned.
func (c *webcam) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.device.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		c.failures++
		if c.failures >= c.opts.MaxFailures {
			c.release()
			return nil, fmt.Errorf("camera %d: %w", c.deviceID, ErrCameraLost)
		}
		return nil, ErrEmptyFrame
	}

	c.failures = 0
	return &mat, nil
}

// SetFPS changes the requested capture rate. Values <= 0 are ignored.
func (c *webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.FPS = fps
	if c.device != nil {
		c.device.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *webcam) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.FPS
}

func (c *webcam) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device != nil
}
