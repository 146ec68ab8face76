package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coinswiper/internal/domain"
	"coinswiper/internal/observability"
	"coinswiper/internal/storage"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50

	recentCacheKey = "votes:recent"
	recentCacheTTL = time.Minute
)

type voteRequest struct {
	TokenID  string `json:"tokenId"`
	VoteType string `json:"voteType"`
}

// parseVoteRequest decodes and validates the vote body.
func parseVoteRequest(r *http.Request) (string, domain.VoteType, map[string]string) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", map[string]string{"body": "must be valid JSON"}
	}

	details := make(map[string]string)
	if req.TokenID == "" {
		details["tokenId"] = "is required"
	}

	vt := domain.VoteType(strings.ToUpper(req.VoteType))
	if !vt.Valid() {
		details["voteType"] = "must be BULLISH or BEARISH"
	}

	if len(details) > 0 {
		return "", "", details
	}
	return req.TokenID, vt, nil
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	tokenID, voteType, details := parseVoteRequest(r)
	if details != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, details)
		return
	}

	rec, err := s.tokens.IncrementVote(r.Context(), tokenID, voteType)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.log.Error().Err(err).Str("token_id", tokenID).Msg("vote failed")
		writeError(w, http.StatusInternalServerError, "failed to record vote")
		return
	}

	observability.RecordVote(string(voteType))
	s.publishVote(rec, voteType, false)
	s.invalidateRecent(r)

	writeData(w, http.StatusOK, toDTO(rec))
}

func (s *Server) handleUndoVote(w http.ResponseWriter, r *http.Request) {
	tokenID, voteType, details := parseVoteRequest(r)
	if details != nil {
		writeFieldErrors(w, http.StatusUnprocessableEntity, details)
		return
	}

	rec, err := s.tokens.UndoVote(r.Context(), tokenID, voteType)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.log.Error().Err(err).Str("token_id", tokenID).Msg("undo vote failed")
		writeError(w, http.StatusInternalServerError, "failed to undo vote")
		return
	}

	s.publishVote(rec, voteType, true)
	s.invalidateRecent(r)

	writeData(w, http.StatusOK, toDTO(rec))
}

func (s *Server) handleGetVotes(w http.ResponseWriter, r *http.Request) {
	tokenID := r.URL.Query().Get("tokenId")
	if tokenID == "" {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{"tokenId": "is required"})
		return
	}

	rec, err := s.tokens.GetByID(r.Context(), tokenID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.log.Error().Err(err).Str("token_id", tokenID).Msg("get votes failed")
		writeError(w, http.StatusInternalServerError, "failed to load votes")
		return
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"tokenId":           rec.ID,
		"bullishVotes":      rec.BullishVotes,
		"bearishVotes":      rec.BearishVotes,
		"bullishPercentage": rec.BullishPercentage,
	})
}

func (s *Server) handleRecentVotes(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"limit": "must be a positive integer"})
			return
		}
		if n > maxRecentLimit {
			n = maxRecentLimit
		}
		limit = n
	}

	w.Header().Set("Cache-Control", "public, max-age=60, stale-while-revalidate=30")

	key := recentCacheKey + ":" + strconv.Itoa(limit)
	if s.serveCached(r.Context(), w, key) {
		return
	}

	recs, err := s.tokens.RecentlyVoted(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("recent votes failed")
		writeError(w, http.StatusInternalServerError, "failed to load recent votes")
		return
	}

	s.writeCacheable(r.Context(), w, key, recentCacheTTL, envelope{
		Status: "success",
		Data:   toDTOs(recs),
	})
}

// publishVote pushes the updated tallies to the live feed.
func (s *Server) publishVote(rec *domain.TokenRecord, voteType domain.VoteType, undo bool) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(domain.VoteEvent{
		TokenID:           rec.ID,
		BaseTokenSymbol:   rec.BaseTokenSymbol,
		VoteType:          voteType,
		Undo:              undo,
		BullishVotes:      rec.BullishVotes,
		BearishVotes:      rec.BearishVotes,
		BullishPercentage: rec.BullishPercentage,
		At:                time.Now().UTC(),
	})
}

// invalidateRecent drops every cached recent-votes page size.
func (s *Server) invalidateRecent(r *http.Request) {
	if s.cache == nil {
		return
	}
	for limit := 1; limit <= maxRecentLimit; limit++ {
		s.cache.Delete(r.Context(), recentCacheKey+":"+strconv.Itoa(limit))
	}
}
