package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/moodflix/internal/capture"
	"github.com/ayusman/moodflix/internal/log"
)

// streamInterval paces the MJPEG preview at about 10 frames a second.
const streamInterval = 100 * time.Millisecond

// StreamHandler serves MJPEG frames from the camera.
type StreamHandler struct {
	camera capture.Camera
}

// NewStreamHandler creates a new StreamHandler with the given camera.
func NewStreamHandler(camera capture.Camera) *StreamHandler {
	return &StreamHandler{camera: camera}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.camera.IsOpen() {
		http.Error(w, "Camera not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, err := h.camera.ReadFrame()
		if errors.Is(err, capture.ErrCameraNotOpen) {
			return
		}
		if err != nil {
			continue
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, werr := w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()
		if werr != nil {
			return
		}

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// SnapshotHandler serves one mirrored, downsized JPEG of the current frame.
type SnapshotHandler struct {
	camera  capture.Camera
	options capture.SnapshotOptions
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(camera capture.Camera, opts capture.SnapshotOptions) *SnapshotHandler {
	return &SnapshotHandler{camera: camera, options: opts}
}

func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame, err := h.camera.ReadFrame()
	if err != nil {
		http.Error(w, "Camera not available", http.StatusServiceUnavailable)
		return
	}
	img, err := capture.Snapshot(frame, h.options)
	frame.Close()
	if err != nil {
		log.Warn(r.Context(), "snapshot failed", "err", err)
		http.Error(w, "Snapshot failed", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := capture.WriteJPEG(&buf, img, h.options.Quality); err != nil {
		log.Warn(r.Context(), "snapshot encode failed", "err", err)
		http.Error(w, "Snapshot failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
