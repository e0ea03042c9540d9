package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fentz26/stratowatch/internal/models"
	"github.com/fentz26/stratowatch/internal/sampler"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Server provides the HTTP API for stratowatch.
type Server struct {
	service *Service
	pinger  Pinger
	addr    string
	logger  *zap.Logger
	sampler *sampler.Sampler
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, pinger Pinger, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service: service,
		pinger:  pinger,
		addr:    addr,
		logger:  logger,
		server: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// WithSampler exposes the sampler's statistics on /compute/sampler.
func (s *Server) WithSampler(sm *sampler.Sampler) *Server {
	s.sampler = sm
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth)

	r.Route("/compute", func(cr chi.Router) {
		cr.Get("/state_history/", s.handleStateHistory)
		cr.Get("/groups/{groupID}/state_history/", s.handleStateHistory)
		cr.Post("/snapshots", s.handlePushSnapshot)
		cr.Get("/sampler", s.handleSamplerStats)
	})

	return r
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown, even when Shutdown ran first.
func (s *Server) Start() error {
	s.server.Handler = s.Handler()

	s.logger.Info("starting stratowatch daemon", zap.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())))
	})
}

// handleHealth reports daemon and store health. It answers 503 when the
// store is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			resp.OK = false
			resp.DB = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

// handleStateHistory serves GET /compute/state_history/ and
// GET /compute/groups/{groupID}/state_history/ with an optional ?limit=
// in seconds.
func (s *Server) handleStateHistory(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, ErrInvalidLimit.Error(), http.StatusBadRequest)
			return
		}
		limit = &n
	}

	points, err := s.service.StateHistory(r.Context(), limit, chi.URLParam(r, "groupID"))
	if err != nil {
		if errors.Is(err, ErrInvalidLimit) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("state history failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if points == nil {
		points = []models.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

type pushSnapshotRequest struct {
	Groups []models.GroupCounts `json:"groups"`
}

type pushSnapshotResponse struct {
	Stored bool   `json:"stored"`
	ID     string `json:"id,omitempty"`
}

func (s *Server) handlePushSnapshot(w http.ResponseWriter, r *http.Request) {
	var req pushSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	snap, err := s.service.PushSnapshot(r.Context(), req.Groups)
	if err != nil {
		if errors.Is(err, ErrInvalidCounts) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("push snapshot failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := pushSnapshotResponse{}
	if snap != nil {
		resp.Stored = true
		resp.ID = snap.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSamplerStats(w http.ResponseWriter, r *http.Request) {
	if s.sampler == nil {
		http.Error(w, "sampler disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.sampler.GetStats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
