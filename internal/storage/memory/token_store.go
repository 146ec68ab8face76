package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"coinswiper/internal/domain"
	"coinswiper/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.TokenRecord
	byPair map[string]string // pair_address -> id
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byID:   make(map[string]*domain.TokenRecord),
		byPair: make(map[string]string),
	}
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert creates or replaces the record for rec.PairAddress, preserving
// vote fields on update.
func (s *TokenStore) Upsert(_ context.Context, rec *domain.TokenRecord) (*domain.TokenRecord, error) {
	if rec == nil || rec.PairAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *rec

	if id, exists := s.byPair[rec.PairAddress]; exists {
		prev := s.byID[id]
		stored.ID = prev.ID
		stored.BullishVotes = prev.BullishVotes
		stored.BearishVotes = prev.BearishVotes
		stored.BullishPercentage = prev.BullishPercentage
		stored.CreatedAt = prev.CreatedAt
		if stored.ImageURL == "" {
			stored.ImageURL = prev.ImageURL
		}
	} else {
		stored.ID = uuid.NewString()
		stored.BullishVotes = 0
		stored.BearishVotes = 0
		stored.BullishPercentage = 50
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.byID[stored.ID] = &stored
	s.byPair[stored.PairAddress] = stored.ID

	out := stored
	return &out, nil
}

// GetByID retrieves a record by UUID. Returns ErrNotFound if absent.
func (s *TokenStore) GetByID(_ context.Context, id string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := *rec
	return &out, nil
}

// GetByPairAddress retrieves a record by pair address. Returns ErrNotFound
// if absent.
func (s *TokenStore) GetByPairAddress(_ context.Context, pairAddress string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byPair[pairAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := *s.byID[id]
	return &out, nil
}

// List returns one page of records plus the total count matching the filters.
func (s *TokenStore) List(_ context.Context, opts storage.ListOptions) ([]*domain.TokenRecord, int, error) {
	if _, ok := sortFields[opts.SortBy]; !ok {
		return nil, 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	var matched []*domain.TokenRecord
	for _, rec := range s.byID {
		if matchesFilters(rec, opts) {
			cp := *rec
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sortRecords(matched, opts.SortBy, opts.SortOrder)

	total := len(matched)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func matchesFilters(rec *domain.TokenRecord, opts storage.ListOptions) bool {
	if opts.Search != "" {
		needle := strings.ToLower(opts.Search)
		if !strings.Contains(strings.ToLower(rec.BaseTokenName), needle) &&
			!strings.Contains(strings.ToLower(rec.BaseTokenSymbol), needle) {
			return false
		}
	}
	if opts.MinLiquidity > 0 && rec.Liquidity < opts.MinLiquidity {
		return false
	}
	if opts.MinVolume > 0 && rec.Volume24h < opts.MinVolume {
		return false
	}
	if opts.Dex != "" && rec.DexID != opts.Dex {
		return false
	}
	return true
}

// sortFields maps sort keys to comparable values.
var sortFields = map[string]func(*domain.TokenRecord) float64{
	storage.SortByLiquidity:         func(r *domain.TokenRecord) float64 { return r.Liquidity },
	storage.SortByVolume24h:         func(r *domain.TokenRecord) float64 { return r.Volume24h },
	storage.SortByPriceChange24h:    func(r *domain.TokenRecord) float64 { return r.PriceChange24h },
	storage.SortByMarketCap:         func(r *domain.TokenRecord) float64 { return r.MarketCap },
	storage.SortByFDV:               func(r *domain.TokenRecord) float64 { return r.FDV },
	storage.SortByTxnCount24h:       func(r *domain.TokenRecord) float64 { return float64(r.TxnCount24h) },
	storage.SortByBullishPercentage: func(r *domain.TokenRecord) float64 { return float64(r.BullishPercentage) },
	storage.SortByPriceUSD:          func(r *domain.TokenRecord) float64 { f, _ := r.PriceUSD.Float64(); return f },
}

func sortRecords(recs []*domain.TokenRecord, sortBy, sortOrder string) {
	key := sortFields[sortBy]
	asc := strings.EqualFold(sortOrder, "asc")

	sort.Slice(recs, func(i, j int) bool {
		ki, kj := key(recs[i]), key(recs[j])
		if ki != kj {
			if asc {
				return ki < kj
			}
			return ki > kj
		}
		// Stable tie-break matching the Postgres implementation.
		return recs[i].PairAddress < recs[j].PairAddress
	})
}

// IncrementVote bumps one counter and recomputes the percentage.
func (s *TokenStore) IncrementVote(_ context.Context, id string, voteType domain.VoteType) (*domain.TokenRecord, error) {
	return s.applyVote(id, voteType, 1)
}

// UndoVote applies a compensating decrement, flooring the counter at zero.
func (s *TokenStore) UndoVote(_ context.Context, id string, voteType domain.VoteType) (*domain.TokenRecord, error) {
	return s.applyVote(id, voteType, -1)
}

func (s *TokenStore) applyVote(id string, voteType domain.VoteType, delta int) (*domain.TokenRecord, error) {
	if !voteType.Valid() {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	if voteType == domain.VoteBullish {
		rec.BullishVotes = max(rec.BullishVotes+delta, 0)
	} else {
		rec.BearishVotes = max(rec.BearishVotes+delta, 0)
	}
	rec.BullishPercentage = domain.BullishPercentage(rec.BullishVotes, rec.BearishVotes)
	rec.UpdatedAt = time.Now().UTC()

	out := *rec
	return &out, nil
}

// RecentlyVoted returns up to limit voted-on records, most recently updated
// first.
func (s *TokenStore) RecentlyVoted(_ context.Context, limit int) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	var voted []*domain.TokenRecord
	for _, rec := range s.byID {
		if rec.BullishVotes > 0 || rec.BearishVotes > 0 {
			cp := *rec
			voted = append(voted, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(voted, func(i, j int) bool {
		if !voted[i].UpdatedAt.Equal(voted[j].UpdatedAt) {
			return voted[i].UpdatedAt.After(voted[j].UpdatedAt)
		}
		return voted[i].PairAddress < voted[j].PairAddress
	})

	if limit > 0 && len(voted) > limit {
		voted = voted[:limit]
	}
	return voted, nil
}

// Count returns the total number of stored records.
func (s *TokenStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Clear deletes all records and returns how many were removed.
func (s *TokenStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.byID)
	s.byID = make(map[string]*domain.TokenRecord)
	s.byPair = make(map[string]string)
	return n, nil
}
