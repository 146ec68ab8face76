package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"coinswiper/internal/storage"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	defaultTrendingLimit = 50
	maxTrendingLimit     = 50

	trendingCacheTTL = 5 * time.Minute
)

var validSortBy = map[string]struct{}{
	storage.SortByLiquidity:         {},
	storage.SortByVolume24h:         {},
	storage.SortByPriceChange24h:    {},
	storage.SortByMarketCap:         {},
	storage.SortByFDV:               {},
	storage.SortByTxnCount24h:       {},
	storage.SortByBullishPercentage: {},
	storage.SortByPriceUSD:          {},
}

// parseListOptions builds ListOptions from query parameters, collecting a
// field error per malformed value.
func parseListOptions(q url.Values) (storage.ListOptions, map[string]string) {
	opts := storage.ListOptions{
		Page:      1,
		Limit:     defaultPageLimit,
		SortBy:    storage.SortByVolume24h,
		SortOrder: "desc",
	}
	details := make(map[string]string)

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details["page"] = "must be a positive integer"
		} else {
			opts.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil || n < 1:
			details["limit"] = "must be a positive integer"
		case n > maxPageLimit:
			opts.Limit = maxPageLimit
		default:
			opts.Limit = n
		}
	}
	if v := q.Get("sortBy"); v != "" {
		if _, ok := validSortBy[v]; !ok {
			details["sortBy"] = "unknown sort field"
		} else {
			opts.SortBy = v
		}
	}
	if v := q.Get("sortOrder"); v != "" {
		if v != "asc" && v != "desc" {
			details["sortOrder"] = "must be asc or desc"
		} else {
			opts.SortOrder = v
		}
	}
	if v := q.Get("minLiquidity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			details["minLiquidity"] = "must be a non-negative number"
		} else {
			opts.MinLiquidity = f
		}
	}
	if v := q.Get("minVolume"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			details["minVolume"] = "must be a non-negative number"
		} else {
			opts.MinVolume = f
		}
	}
	opts.Search = q.Get("search")
	opts.Dex = q.Get("dex")

	if len(details) > 0 {
		return opts, details
	}
	return opts, nil
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	opts, details := parseListOptions(r.URL.Query())
	if details != nil {
		writeFieldErrors(w, http.StatusBadRequest, details)
		return
	}

	recs, total, err := s.tokens.List(r.Context(), opts)
	if err != nil {
		s.log.Error().Err(err).Msg("list tokens failed")
		writeError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}

	pag := paginationFor(opts.Page, opts.Limit, total)
	writeJSON(w, http.StatusOK, envelope{
		Status:     "success",
		Data:       toDTOs(recs),
		Pagination: &pag,
		Filters: map[string]interface{}{
			"search":       opts.Search,
			"minLiquidity": opts.MinLiquidity,
			"minVolume":    opts.MinVolume,
			"dex":          opts.Dex,
		},
		Sorting: map[string]string{
			"sortBy":    opts.SortBy,
			"sortOrder": opts.SortOrder,
		},
	})
}

func (s *Server) handleTrendingTokens(w http.ResponseWriter, r *http.Request) {
	limit := defaultTrendingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"limit": "must be a positive integer"})
			return
		}
		if n > maxTrendingLimit {
			n = maxTrendingLimit
		}
		limit = n
	}

	w.Header().Set("Cache-Control", "public, max-age=300, stale-while-revalidate=600")

	key := fmt.Sprintf("trending:%d", limit)
	if s.serveCached(r.Context(), w, key) {
		return
	}

	recs, _, err := s.tokens.List(r.Context(), storage.ListOptions{
		Page:         1,
		Limit:        limit,
		SortBy:       storage.SortByVolume24h,
		SortOrder:    "desc",
		MinLiquidity: s.cfg.Scoring.TrendingMinLiquidity,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("trending tokens failed")
		writeError(w, http.StatusInternalServerError, "failed to load trending tokens")
		return
	}

	s.writeCacheable(r.Context(), w, key, trendingCacheTTL, envelope{
		Status: "success",
		Data:   toDTOs(recs),
	})
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	pairAddress := mux.Vars(r)["pairAddress"]

	rec, err := s.tokens.GetByPairAddress(r.Context(), pairAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.log.Error().Err(err).Str("pair", pairAddress).Msg("get token failed")
		writeError(w, http.StatusInternalServerError, "failed to load token")
		return
	}
	writeData(w, http.StatusOK, toDTO(rec))
}

// snapshotDTO is the wire shape of one sync-run market snapshot.
type snapshotDTO struct {
	PairAddress string  `json:"pairAddress"`
	Symbol      string  `json:"symbol"`
	DexID       string  `json:"dexId"`
	PriceUSD    float64 `json:"priceUsd"`
	Liquidity   float64 `json:"liquidity"`
	Volume24h   float64 `json:"volume24h"`
	TxnCount24h int     `json:"txnCount24h"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	SyncedAt    string  `json:"syncedAt"`
}

func (s *Server) handleTokenHistory(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot history is not configured")
		return
	}
	pairAddress := mux.Vars(r)["pairAddress"]

	snaps, err := s.snapshots.GetByPair(r.Context(), pairAddress)
	if err != nil {
		s.log.Error().Err(err).Str("pair", pairAddress).Msg("token history failed")
		writeError(w, http.StatusInternalServerError, "failed to load token history")
		return
	}

	out := make([]snapshotDTO, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotDTO{
			PairAddress: snap.PairAddress,
			Symbol:      snap.BaseTokenSymbol,
			DexID:       snap.DexID,
			PriceUSD:    snap.PriceUSD,
			Liquidity:   snap.Liquidity,
			Volume24h:   snap.Volume24h,
			TxnCount24h: snap.TxnCount24h,
			Score:       snap.Score,
			Rank:        snap.Rank,
			SyncedAt:    snap.SyncedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	}
	writeData(w, http.StatusOK, out)
}

// serveCached writes the cached payload for key when present.
func (s *Server) serveCached(ctx context.Context, w http.ResponseWriter, key string) bool {
	if s.cache == nil {
		return false
	}
	payload, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
	return true
}

// writeCacheable renders body, stores it under key, and writes it out.
func (s *Server) writeCacheable(ctx context.Context, w http.ResponseWriter, key string, ttl time.Duration, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, payload, ttl)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
