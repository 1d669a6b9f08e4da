// Package server provides the HTTP server for the mudra capture service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration. Routes whose collaborator is nil
// are not registered.
type Config struct {
	StaticDir string
	Logger    *zap.Logger

	Store           *store.Store
	Source          capture.VideoSource
	Models          api.ModelStatus
	Tracker         api.TrackerStatus
	Recorder        api.Recorder
	DefaultDuration recording.Duration

	// Landmarks and Countdown feed the /api/landmarks WebSocket.
	Landmarks LandmarkFeed
	Countdown CountdownFeed
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	logger *zap.Logger
	mux    *http.ServeMux
	start  time.Time
	hub    *LandmarksHandler

	mu   sync.Mutex
	http *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		logger: logging.OrNop(config.Logger).Named("server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Models != nil {
		s.mux.Handle("/api/model", api.NewModelHandler(s.config.Models, s.config.Tracker))
	}

	if s.config.Recorder != nil {
		h := api.NewRecordingHandler(s.config.Recorder, s.config.DefaultDuration)
		s.mux.Handle("/api/recording", h)
		s.mux.Handle("/api/recording/", h)
	}

	if s.config.Store != nil {
		h := api.NewRecordingsHandler(s.config.Store)
		s.mux.Handle("/api/recordings", h)
		s.mux.Handle("/api/recordings/", h)
	}

	if s.config.Source != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Source, s.logger))
	}

	if s.config.Landmarks != nil {
		s.hub = NewLandmarksHandler(s.logger)
		s.config.Landmarks.OnResult(s.hub.PublishLandmarks)
		if s.config.Countdown != nil {
			s.config.Countdown.OnCountdown(s.hub.PublishCountdown)
		}
		s.mux.Handle("/api/landmarks", s.hub)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// healthResponse is the /api/health body. Optional fields are omitted when
// the matching collaborator is not configured.
type healthResponse struct {
	Status    string           `json:"status"`
	Uptime    string           `json:"uptime"`
	Model     string           `json:"model,omitempty"`
	Recording recording.Status `json:"recording,omitempty"`
	Clients   *int             `json:"clients,omitempty"`
}

// Model readiness values reported by /api/health.
const (
	modelLoading     = "loading"
	modelReady       = "ready"
	modelUnavailable = "unavailable"
)

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Millisecond).String(),
	}
	if s.config.Models != nil {
		state := s.config.Models.State()
		switch {
		case state.IsLoading:
			response.Model = modelLoading
		case state.Ready():
			response.Model = modelReady
		default:
			response.Model = modelUnavailable
		}
	}
	if s.config.Recorder != nil {
		response.Recording = s.config.Recorder.RecordingInfo().Status
	}
	if s.hub != nil {
		n := s.hub.Clients()
		response.Clients = &n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Warn("encode health response", zap.Error(err))
	}
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and disconnects WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
