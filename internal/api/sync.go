package api

import (
	"errors"
	"net/http"
	"strings"

	"coinswiper/internal/pipeline"
)

// authorized checks the Bearer token against the configured cron secret.
// An empty secret leaves the endpoint open, which is only sensible in
// development.
func (s *Server) authorized(r *http.Request) bool {
	secret := s.cfg.Sync.CronSecret
	if secret == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	return ok && token == secret
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}

	res, err := s.syncer.Run(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "sync already running")
			return
		}
		s.log.Error().Err(err).Msg("manual sync failed")
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"fetched":       res.Fetched,
		"ranked":        res.Ranked,
		"storedPairs":   res.Stored,
		"databaseCount": res.DatabaseCount,
		"dropped":       res.Dropped,
		"pairs":         res.Pairs,
		"durationMs":    res.Duration.Milliseconds(),
	})
}

func (s *Server) handleClearDatabase(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	n, err := s.tokens.Clear(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("clear database failed")
		writeError(w, http.StatusInternalServerError, "failed to clear database")
		return
	}

	s.log.Warn().Int("cleared", n).Msg("database cleared")
	writeData(w, http.StatusOK, map[string]int{"cleared": n})
}
