// Package server provides the HTTP surface of Moodflix.
package server

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/ayusman/moodflix/internal/app"
	"github.com/ayusman/moodflix/internal/capture"
	"github.com/ayusman/moodflix/internal/server/api"
)

//go:embed web
var webFS embed.FS

// Config holds the server configuration.
type Config struct {
	// App is required.
	App       *app.App
	StaticDir string
	Snapshot  capture.SnapshotOptions
}

// Server routes the mood API, the live websocket and the UI.
type Server struct {
	config      Config
	mux         *http.ServeMux
	hub         *Hub
	start       time.Time
	unsubscribe func()
}

// New creates a new Server with the given configuration. The server follows
// the App's mood changes until Close.
func New(config Config) *Server {
	if config.Snapshot == (capture.SnapshotOptions{}) {
		config.Snapshot = capture.DefaultSnapshotOptions()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.hub = NewHub(func() any { return s.currentMood() })
	s.unsubscribe = config.App.Subscribe(func(app.MoodEvent) {
		s.hub.Publish()
	})
	s.setupRoutes()
	return s
}

func (s *Server) currentMood() api.MoodResponse {
	return api.NewMoodResponse(s.config.App.Mood().State())
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/mood", api.NewMoodHandler(s.config.App.Mood()))
	s.mux.Handle("/api/mood/ws", s.hub)
	s.mux.Handle("/api/themes", api.NewThemesHandler())
	s.mux.Handle("/api/detection", api.NewDetectionHandler(s.config.App))

	camera := s.config.App.Camera()
	s.mux.Handle("/api/stream", NewStreamHandler(camera))
	s.mux.Handle("/api/snapshot", NewSnapshotHandler(camera, s.config.Snapshot))

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
		return
	}
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	s.mux.Handle("/", http.FileServer(http.FS(sub)))
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close stops following mood changes and disconnects websocket clients.
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.Close()
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
