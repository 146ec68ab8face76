package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinswiper/internal/domain"
	"coinswiper/internal/storage"
)

func sampleRecord(pairAddress string) *domain.TokenRecord {
	return &domain.TokenRecord{
		PairAddress:     pairAddress,
		BaseTokenName:   "Bonk",
		BaseTokenSymbol: "BONK",
		DexID:           "raydium",
		PriceUSD:        decimal.RequireFromString("0.000012"),
		Liquidity:       125_000,
		Volume24h:       800_000,
	}
}

func TestUpsertAssignsIDAndDefaults(t *testing.T) {
	store := NewTokenStore()

	rec, err := store.Upsert(context.Background(), sampleRecord("pair-1"))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 50, rec.BullishPercentage)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestUpsertPreservesVotesAndImage(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	first := sampleRecord("pair-1")
	first.ImageURL = "https://img.example/bonk.png"
	stored, err := store.Upsert(ctx, first)
	require.NoError(t, err)

	_, err = store.IncrementVote(ctx, stored.ID, domain.VoteBullish)
	require.NoError(t, err)

	update := sampleRecord("pair-1")
	update.Volume24h = 1
	second, err := store.Upsert(ctx, update)
	require.NoError(t, err)

	assert.Equal(t, stored.ID, second.ID)
	assert.Equal(t, 1, second.BullishVotes)
	assert.Equal(t, 100, second.BullishPercentage)
	assert.Equal(t, "https://img.example/bonk.png", second.ImageURL)
	assert.Equal(t, 1.0, second.Volume24h)
}

func TestUpsertInvalidInput(t *testing.T) {
	store := NewTokenStore()

	_, err := store.Upsert(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Upsert(context.Background(), &domain.TokenRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestGetReturnsCopies(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	stored, err := store.Upsert(ctx, sampleRecord("pair-1"))
	require.NoError(t, err)

	got, err := store.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	got.BaseTokenSymbol = "MUTATED"

	again, err := store.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "BONK", again.BaseTokenSymbol)
}

func TestListSortPaginateFilter(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := sampleRecord(fmt.Sprintf("pair-%d", i))
		rec.BaseTokenSymbol = fmt.Sprintf("TOK%d", i)
		rec.Liquidity = float64((i + 1) * 1000)
		_, err := store.Upsert(ctx, rec)
		require.NoError(t, err)
	}

	recs, total, err := store.List(ctx, storage.ListOptions{
		Page: 1, Limit: 2,
		SortBy: storage.SortByLiquidity, SortOrder: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, recs, 2)
	assert.Equal(t, 5000.0, recs[0].Liquidity)

	recs, total, err = store.List(ctx, storage.ListOptions{
		Page: 1, Limit: 10,
		SortBy: storage.SortByLiquidity, SortOrder: "desc",
		Search: "tok3",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "TOK3", recs[0].BaseTokenSymbol)

	_, _, err = store.List(ctx, storage.ListOptions{
		Page: 1, Limit: 10, SortBy: "bogus",
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestVoteFlow(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	stored, err := store.Upsert(ctx, sampleRecord("pair-1"))
	require.NoError(t, err)

	rec, err := store.IncrementVote(ctx, stored.ID, domain.VoteBullish)
	require.NoError(t, err)
	assert.Equal(t, 100, rec.BullishPercentage)

	rec, err = store.IncrementVote(ctx, stored.ID, domain.VoteBearish)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.BullishPercentage)

	rec, err = store.UndoVote(ctx, stored.ID, domain.VoteBullish)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.BullishVotes)
	assert.Equal(t, 0, rec.BullishPercentage)

	// Undo below zero stays at zero.
	rec, err = store.UndoVote(ctx, stored.ID, domain.VoteBullish)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.BullishVotes)

	_, err = store.IncrementVote(ctx, "missing", domain.VoteBullish)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.IncrementVote(ctx, stored.ID, domain.VoteType("SIDEWAYS"))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestRecentlyVotedOrder(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := store.Upsert(ctx, sampleRecord(fmt.Sprintf("pair-%d", i)))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	_, err := store.IncrementVote(ctx, ids[0], domain.VoteBullish)
	require.NoError(t, err)
	_, err = store.IncrementVote(ctx, ids[2], domain.VoteBearish)
	require.NoError(t, err)

	recs, err := store.RecentlyVoted(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	recs, err = store.RecentlyVoted(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCountAndClear(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Upsert(ctx, sampleRecord(fmt.Sprintf("pair-%d", i)))
		require.NoError(t, err)
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	removed, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
