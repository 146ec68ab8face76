// Package api exposes the HTTP surface: token listings, votes, the sync
// trigger, and the live vote-activity feed.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"coinswiper/internal/activity"
	"coinswiper/internal/cache"
	"coinswiper/internal/config"
	"coinswiper/internal/pipeline"
	"coinswiper/internal/storage"
)

// Syncer triggers one pipeline run.
type Syncer interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Server wires handlers to their dependencies.
type Server struct {
	tokens    storage.TokenStore
	snapshots storage.SnapshotStore
	syncer    Syncer
	hub       *activity.Hub
	cache     cache.Cache
	cfg       *config.Config
	log       zerolog.Logger
	startedAt time.Time
}

// NewServer creates a Server. snapshots, hub and c may be nil, disabling the
// history endpoint, the live feed and response caching respectively.
func NewServer(cfg *config.Config, tokens storage.TokenStore, snapshots storage.SnapshotStore, syncer Syncer, hub *activity.Hub, c cache.Cache, log zerolog.Logger) *Server {
	return &Server{
		tokens:    tokens,
		snapshots: snapshots,
		syncer:    syncer,
		hub:       hub,
		cache:     c,
		cfg:       cfg,
		log:       log.With().Str("component", "api").Logger(),
		startedAt: time.Now().UTC(),
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware(s.log), corsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tokens", s.handleListTokens).Methods(http.MethodGet)
	api.HandleFunc("/tokens/trending", s.handleTrendingTokens).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{pairAddress}", s.handleGetToken).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{pairAddress}/history", s.handleTokenHistory).Methods(http.MethodGet)

	api.HandleFunc("/votes", s.handleCastVote).Methods(http.MethodPost)
	api.HandleFunc("/votes", s.handleUndoVote).Methods(http.MethodDelete)
	api.HandleFunc("/votes", s.handleGetVotes).Methods(http.MethodGet)
	api.HandleFunc("/votes/recent", s.handleRecentVotes).Methods(http.MethodGet)
	if s.hub != nil {
		api.Handle("/votes/live", s.hub).Methods(http.MethodGet)
	}

	api.HandleFunc("/sync", s.handleTriggerSync).Methods(http.MethodPost)
	api.HandleFunc("/admin/clear", s.handleClearDatabase).Methods(http.MethodPost)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	total, err := s.tokens.Count(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("status count failed")
		writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}

	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"uptimeSeconds":   int(time.Since(s.startedAt).Seconds()),
		"trackedTokens":   total,
		"activityClients": clients,
	})
}
