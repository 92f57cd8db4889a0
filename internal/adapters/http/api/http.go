// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/farbklang/internal/app"
	"github.com/okian/farbklang/internal/domain/palette"
	"github.com/okian/farbklang/internal/domain/rating"
	"github.com/okian/farbklang/internal/domain/similarity"
	"github.com/okian/farbklang/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RatingDependencies
	SimilarDependencies
	SongDependencies
	OptionDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	ratingsHandler   *RatingsHandler
	similarHandler   *SimilarHandler
	songsHandler     *SongsHandler
	optionsHandler   *OptionsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(statsProvider),
		statsHandler:     NewStatsHandler(statsProvider),
		ratingsHandler:   NewRatingsHandler(deps),
		similarHandler:   NewSimilarHandler(deps),
		songsHandler:     NewSongsHandler(deps),
		optionsHandler:   NewOptionsHandler(deps),
		dashboardHandler: newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ratings", MetricsMiddleware(s.ratingsHandler.HandlePostRating, "ratings"))
	mux.HandleFunc("/similar", MetricsMiddleware(s.similarHandler.HandleGetSimilar, "similar"))
	mux.HandleFunc("/songs", MetricsMiddleware(s.songsHandler.HandleGetSongs, "songs"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.songsHandler.HandleReload, "reload"))
	mux.HandleFunc("/options", MetricsMiddleware(s.optionsHandler.HandleGetOptions, "options"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.code = code
	}
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// writeServiceError maps service and domain errors to status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, rating.ErrMissingSong),
		errors.Is(err, rating.ErrSliderRange),
		errors.Is(err, rating.ErrTooManyEmotions),
		errors.Is(err, rating.ErrUnknownEmotion),
		errors.Is(err, palette.ErrInvalidColor),
		errors.Is(err, palette.ErrSlotCount):
		writeError(w, http.StatusBadRequest, "validation_error", WrapKind(op, ErrValidation, err))
	case errors.Is(err, similarity.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrLimitExceeded):
		writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrLimitExceeded, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// Response shapes shared with the service.
type (
	SaveResult = types.SaveResult
	Similar    = types.Similar
	Song       = types.Song
	Options    = types.Options
	Stats      = types.Stats
)
