package storage

import (
	"context"

	"coinswiper/internal/domain"
)

// Sortable columns for TokenStore.List. Values mirror the API's sortBy enum.
const (
	SortByLiquidity         = "liquidity"
	SortByVolume24h         = "volume24h"
	SortByPriceChange24h    = "priceChange24h"
	SortByMarketCap         = "marketCap"
	SortByFDV               = "fdv"
	SortByTxnCount24h       = "txnCount24h"
	SortByBullishPercentage = "bullishPercentage"
	SortByPriceUSD          = "priceUsd"
)

// ListOptions controls filtering, sorting and pagination of token listings.
type ListOptions struct {
	Page      int
	Limit     int
	SortBy    string // one of the SortBy* constants
	SortOrder string // "asc" | "desc"

	// Filters. Zero values mean "not applied".
	Search       string // case-insensitive substring on base token name/symbol
	MinLiquidity float64
	MinVolume    float64
	Dex          string
}

// Offset returns the row offset implied by Page/Limit.
func (o ListOptions) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// TokenStore provides access to persisted token records.
type TokenStore interface {
	// Upsert creates or replaces the record for rec.PairAddress. On update
	// the market fields are replaced and the vote fields are preserved.
	// Returns the stored record (with ID and vote tallies).
	Upsert(ctx context.Context, rec *domain.TokenRecord) (*domain.TokenRecord, error)

	// GetByID retrieves a record by its UUID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*domain.TokenRecord, error)

	// GetByPairAddress retrieves a record by pair address. Returns
	// ErrNotFound if absent.
	GetByPairAddress(ctx context.Context, pairAddress string) (*domain.TokenRecord, error)

	// List returns one page of records plus the total count matching the
	// filters.
	List(ctx context.Context, opts ListOptions) ([]*domain.TokenRecord, int, error)

	// IncrementVote atomically bumps the counter for voteType by one and
	// recomputes the bullish percentage from the post-increment tallies.
	// Returns ErrNotFound for an unknown id.
	IncrementVote(ctx context.Context, id string, voteType domain.VoteType) (*domain.TokenRecord, error)

	// UndoVote applies a compensating decrement for voteType, flooring the
	// counter at zero, and recomputes the percentage.
	UndoVote(ctx context.Context, id string, voteType domain.VoteType) (*domain.TokenRecord, error)

	// RecentlyVoted returns up to limit records with at least one vote,
	// most recently updated first.
	RecentlyVoted(ctx context.Context, limit int) ([]*domain.TokenRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)

	// Clear deletes all records and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// SnapshotStore provides access to append-only per-sync market snapshots.
type SnapshotStore interface {
	// InsertBatch appends one sync run's snapshot rows.
	InsertBatch(ctx context.Context, snaps []*domain.PairSnapshot) error

	// GetByPair retrieves all snapshots for a pair, oldest first.
	GetByPair(ctx context.Context, pairAddress string) ([]*domain.PairSnapshot, error)

	// LatestSync returns the rows of the most recent sync run, rank ascending.
	LatestSync(ctx context.Context) ([]*domain.PairSnapshot, error)
}
