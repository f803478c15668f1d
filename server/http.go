// Package server exposes the transcript service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transcriptd/metrics"
	"transcriptd/transcript"
)

// serviceName is reported by the health endpoint.
const serviceName = "transcript-service"

// TranscriptService is the transcript operations the server exposes.
type TranscriptService interface {
	Fetch(ctx context.Context, videoID string, languages []string) (*transcript.Result, error)
	ListTracks(ctx context.Context, videoID string) ([]transcript.Track, error)
}

// Config configures the HTTP server.
type Config struct {
	// Port is the listening port. The server binds all interfaces.
	Port int
	// ReadTimeout for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout for writing the response. It bounds the whole
	// handler, so it must cover the provider's retry budget.
	WriteTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	server  *http.Server
	logger  *slog.Logger
	metrics *metrics.Metrics
	service TranscriptService
}

// New creates an HTTP API server around the transcript service.
func New(cfg Config, service TranscriptService, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:  logger,
		metrics: m,
		service: service,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures the HTTP API routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/transcript/", s.withMetrics("/transcript/{video_id}", s.handleTranscript))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps a handler with request logging and metrics. Every
// request gets a generated id that appears in the access log and the
// X-Request-ID response header.
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime)
		s.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration.Seconds())
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}

		s.logger.Info("request handled",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.statusCode),
			slog.Duration("duration", duration),
		)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server in the background.
func (s *Server) Start() {
	s.logger.Info("starting http server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", slog.String("error", err.Error()))
		}
	}()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

// errorResponse is the JSON body for every failed request. Errors are
// always JSON, never HTML.
type errorResponse struct {
	Error       string `json:"error"`
	ErrorCode   string `json:"error_code"`
	VideoID     string `json:"video_id,omitempty"`
	IsRetryable bool   `json:"is_retryable"`
	RetryAfter  int    `json:"retry_after,omitempty"`
}

// handleHealth implements the /health endpoint. It reports liveness
// only and never touches the provider.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, &errorResponse{
			Error:     "Method not allowed",
			ErrorCode: string(transcript.CodeInternalError),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

// handleTranscript dispatches /transcript/{video_id} and
// /transcript/list/{video_id}.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, &errorResponse{
			Error:     "Method not allowed",
			ErrorCode: string(transcript.CodeInternalError),
		})
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/transcript/")

	if rest, ok := strings.CutPrefix(path, "list/"); ok {
		s.handleList(w, r, rest)
		return
	}
	s.handleFetch(w, r, path)
}

// handleFetch implements GET /transcript/{video_id}.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request, videoID string) {
	if !validVideoID(videoID) {
		s.writeError(w, http.StatusBadRequest, &errorResponse{
			Error:     "Video ID is required",
			ErrorCode: string(transcript.CodeInternalError),
		})
		return
	}

	languages := parseLanguages(r.URL.Query().Get("languages"))

	result, err := s.service.Fetch(r.Context(), videoID, languages)
	if err != nil {
		s.writeServiceError(w, videoID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// listResponse is the body for GET /transcript/list/{video_id}.
type listResponse struct {
	VideoID string             `json:"video_id"`
	Tracks  []transcript.Track `json:"available_transcripts"`
}

// handleList implements GET /transcript/list/{video_id}.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request, videoID string) {
	if !validVideoID(videoID) {
		s.writeError(w, http.StatusBadRequest, &errorResponse{
			Error:     "Video ID is required",
			ErrorCode: string(transcript.CodeInternalError),
		})
		return
	}

	tracks, err := s.service.ListTracks(r.Context(), videoID)
	if err != nil {
		s.writeServiceError(w, videoID, err)
		return
	}
	if tracks == nil {
		tracks = []transcript.Track{}
	}

	writeJSON(w, http.StatusOK, listResponse{VideoID: videoID, Tracks: tracks})
}

// handleRoot serves API documentation at / and a JSON 404 elsewhere.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, &errorResponse{
			Error:     "Not found",
			ErrorCode: string(transcript.CodeInternalError),
		})
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, &errorResponse{
			Error:     "Method not allowed",
			ErrorCode: string(transcript.CodeInternalError),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"endpoints": map[string]string{
			"GET /":                           "API documentation",
			"GET /health":                     "Service health check",
			"GET /transcript/{video_id}":      "Fetch transcript (query: languages=en,de)",
			"GET /transcript/list/{video_id}": "List available transcript tracks",
			"GET /metrics":                    "Prometheus metrics",
		},
	})
}

// writeServiceError renders a classified service failure.
func (s *Server) writeServiceError(w http.ResponseWriter, videoID string, err error) {
	var classified *transcript.Error
	if !errors.As(err, &classified) {
		s.writeError(w, http.StatusInternalServerError, &errorResponse{
			Error:     "Internal server error",
			ErrorCode: string(transcript.CodeInternalError),
			VideoID:   videoID,
		})
		return
	}

	s.writeError(w, classified.HTTPStatus(), &errorResponse{
		Error:       classified.Message,
		ErrorCode:   string(classified.Code),
		VideoID:     classified.VideoID,
		IsRetryable: classified.Retryable,
		RetryAfter:  classified.RetryAfter,
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, body *errorResponse) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// parseLanguages splits the comma-separated languages parameter,
// dropping empty entries. Nil means the caller gets the default.
func parseLanguages(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	languages := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			languages = append(languages, p)
		}
	}
	if len(languages) == 0 {
		return nil
	}
	return languages
}

// validVideoID rejects empty ids and anything with a path separator,
// which would indicate a malformed route rather than a video id.
func validVideoID(videoID string) bool {
	return videoID != "" && !strings.Contains(videoID, "/")
}
