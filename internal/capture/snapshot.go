package capture

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// SnapshotOptions controls how a frame is rendered for display.
type SnapshotOptions struct {
	// MaxWidth and MaxHeight bound the output; zero keeps the frame size.
	MaxWidth  int
	MaxHeight int
	// Mirror flips the image horizontally so the viewer sees a selfie view.
	Mirror  bool
	Quality int
}

// DefaultSnapshotOptions returns a mirrored 320x240 preview.
func DefaultSnapshotOptions() SnapshotOptions {
	return SnapshotOptions{
		MaxWidth:  320,
		MaxHeight: 240,
		Mirror:    true,
		Quality:   80,
	}
}

// Snapshot converts frame to an image prepared according to opts.
func Snapshot(frame *gocv.Mat, opts SnapshotOptions) (image.Image, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return Prepare(img, opts), nil
}

// Prepare mirrors and downsizes img according to opts.
func Prepare(img image.Image, opts SnapshotOptions) image.Image {
	if opts.Mirror {
		img = imaging.FlipH(img)
	}
	if opts.MaxWidth > 0 && opts.MaxHeight > 0 {
		b := img.Bounds()
		if b.Dx() > opts.MaxWidth || b.Dy() > opts.MaxHeight {
			img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
		}
	}
	return img
}

// WriteJPEG encodes img as JPEG to w.
func WriteJPEG(w io.Writer, img image.Image, quality int) error {
	if img == nil {
		return errors.New("nil image")
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
