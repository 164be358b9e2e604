package capture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"gocv.io/x/gocv"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	// Left column red, everything else black.
	for y := 0; y < h; y++ {
		img.Set(0, y, color.NRGBA{R: 255, A: 255})
	}
	return img
}

func TestPrepare_Mirror(t *testing.T) {
	out := Prepare(testImage(4, 2), SnapshotOptions{Mirror: true})

	if r, _, _, _ := out.At(3, 0).RGBA(); r != 0xffff {
		t.Errorf("red column should move to the right edge, got r=%#x", r)
	}
	if r, _, _, _ := out.At(0, 0).RGBA(); r != 0 {
		t.Errorf("left edge should be black, got r=%#x", r)
	}
}

func TestPrepare_Fit(t *testing.T) {
	out := Prepare(testImage(640, 480), SnapshotOptions{MaxWidth: 320, MaxHeight: 240})
	if out.Bounds().Dx() != 320 || out.Bounds().Dy() != 240 {
		t.Errorf("expected 320x240, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestPrepare_SmallImageUntouched(t *testing.T) {
	out := Prepare(testImage(100, 50), SnapshotOptions{MaxWidth: 320, MaxHeight: 240})
	if out.Bounds().Dx() != 100 {
		t.Errorf("expected width 100, got %d", out.Bounds().Dx())
	}
}

func TestWriteJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJPEG(&buf, testImage(16, 16), 0); err != nil {
		t.Fatalf("WriteJPEG() error = %v", err)
	}

	img, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatalf("jpeg.Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("expected width 16, got %d", img.Bounds().Dx())
	}

	if err := WriteJPEG(&buf, nil, 80); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestSnapshot(t *testing.T) {
	if _, err := Snapshot(nil, DefaultSnapshotOptions()); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Snapshot(nil) error = %v, want ErrEmptyFrame", err)
	}

	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	img, err := Snapshot(&frame, DefaultSnapshotOptions())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if img.Bounds().Dx() != 320 {
		t.Errorf("expected width 320, got %d", img.Bounds().Dx())
	}
}
