package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinswiper/internal/config"
	"coinswiper/internal/dexscreener"
	"coinswiper/internal/domain"
	"coinswiper/internal/storage/memory"
)

// fakeSource serves canned responses keyed by query.
type fakeSource struct {
	byQuery  map[string][]*domain.Pair
	byToken  map[string][]*domain.Pair
	failAll  bool
	boosts   []dexscreener.TokenBoost
	profiles []dexscreener.TokenProfile
}

func (f *fakeSource) SearchPairs(_ context.Context, query string) ([]*domain.Pair, error) {
	if f.failAll {
		return nil, errors.New("upstream down")
	}
	pairs, ok := f.byQuery[query]
	if !ok {
		return nil, errors.New("query failed")
	}
	// Return copies so the pipeline's mutations don't leak into fixtures.
	out := make([]*domain.Pair, len(pairs))
	for i, p := range pairs {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

func (f *fakeSource) PairsByToken(_ context.Context, _ string, addresses ...string) ([]*domain.Pair, error) {
	var out []*domain.Pair
	for _, addr := range addresses {
		for _, p := range f.byToken[addr] {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSource) LatestTokenProfiles(context.Context) ([]dexscreener.TokenProfile, error) {
	return f.profiles, nil
}

func (f *fakeSource) LatestTokenBoosts(context.Context) ([]dexscreener.TokenBoost, error) {
	return f.boosts, nil
}

func (f *fakeSource) TopTokenBoosts(context.Context) ([]dexscreener.TokenBoost, error) {
	return nil, errors.New("not available")
}

func newTestPipeline(src MarketSource, queries []string) (*Pipeline, *memory.TokenStore, *memory.SnapshotStore) {
	cfg := config.Default()
	cfg.Sync.MaxTokens = 2
	cfg.Sync.FetchWorkers = 4

	tokens := memory.NewTokenStore()
	snaps := memory.NewSnapshotStore()

	p := New(&cfg, src, tokens, snaps, zerolog.Nop())
	p.queries = queries
	return p, tokens, snaps
}

func TestPipelineRunStoresTopTokens(t *testing.T) {
	big := testPair()
	big.Volume24h = 500_000

	mid := testPair()
	mid.PairAddress = addrRAY
	mid.BaseToken = domain.Token{Address: addrWIF, Name: "dogwifhat", Symbol: "WIF"}
	mid.Volume24h = 100_000

	tiny := testPair()
	tiny.PairAddress = addrUSDC // any distinct valid address works here
	tiny.BaseToken = domain.Token{Address: addrUSDC, Name: "Tiny Coin", Symbol: "TINY"}
	tiny.Volume24h = 10

	src := &fakeSource{byQuery: map[string][]*domain.Pair{
		"q1": {big, mid},
		"q2": {tiny, big}, // big appears twice across queries
	}}

	p, tokens, snaps := newTestPipeline(src, []string{"q1", "q2"})

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 3, res.Ranked)
	assert.Equal(t, 2, res.Stored) // MaxTokens caps the board
	assert.Equal(t, 2, res.DatabaseCount)

	// The low-volume pair did not make the cut.
	_, err = tokens.GetByPairAddress(context.Background(), addrUSDC)
	assert.Error(t, err)

	// The result echoes the board, best first.
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, 1, res.Pairs[0].Rank)
	assert.Equal(t, addrPair, res.Pairs[0].PairAddress)
	assert.Equal(t, "BONK", res.Pairs[0].Symbol)
	assert.Equal(t, 2, res.Pairs[1].Rank)
	assert.Greater(t, res.Pairs[0].Score, res.Pairs[1].Score)

	// Snapshot rows carry ranks in board order.
	rows, err := snaps.LatestSync(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, addrPair, rows[0].PairAddress)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestPipelineRunPreservesVotes(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]*domain.Pair{
		"q1": {testPair()},
	}}
	p, tokens, _ := newTestPipeline(src, []string{"q1"})
	ctx := context.Background()

	_, err := p.Run(ctx)
	require.NoError(t, err)

	rec, err := tokens.GetByPairAddress(ctx, addrPair)
	require.NoError(t, err)

	_, err = tokens.IncrementVote(ctx, rec.ID, domain.VoteBullish)
	require.NoError(t, err)

	// Second run refreshes market data but not tallies.
	_, err = p.Run(ctx)
	require.NoError(t, err)

	rec, err = tokens.GetByPairAddress(ctx, addrPair)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.BullishVotes)
	assert.Equal(t, 100, rec.BullishPercentage)
}

func TestPipelineRunAppliesBoosts(t *testing.T) {
	src := &fakeSource{
		byQuery: map[string][]*domain.Pair{"q1": {testPair()}},
		boosts:  []dexscreener.TokenBoost{{TokenAddress: addrBONK, Amount: 100}},
	}
	p, _, snaps := newTestPipeline(src, []string{"q1"})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Stored)

	rows, err := snaps.LatestSync(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	unboosted := Score(testPair(), config.Default().Scoring)
	assert.Greater(t, rows[0].Score, unboosted)
}

func TestPipelineRunEnrichesImages(t *testing.T) {
	src := &fakeSource{
		byQuery:  map[string][]*domain.Pair{"q1": {testPair()}},
		profiles: []dexscreener.TokenProfile{{TokenAddress: addrBONK, Icon: "https://img.example/bonk.png"}},
	}
	p, tokens, _ := newTestPipeline(src, []string{"q1"})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	rec, err := tokens.GetByPairAddress(context.Background(), addrPair)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/bonk.png", rec.ImageURL)
}

func TestPipelineRunToleratesPartialQueryFailure(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]*domain.Pair{
		"good": {testPair()},
		// "bad" is absent, so that query errors
	}}
	p, _, _ := newTestPipeline(src, []string{"good", "bad"})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
}

func TestPipelineRunFailsWhenAllQueriesFail(t *testing.T) {
	src := &fakeSource{failAll: true}
	p, _, _ := newTestPipeline(src, []string{"q1", "q2"})

	_, err := p.Run(context.Background())
	assert.Error(t, err)
}

func TestPipelineRunDeterministicAcrossQueryOrder(t *testing.T) {
	pairs := make([]*domain.Pair, 0, 4)
	addrs := []string{addrPair, addrRAY, addrWIF, addrSOL}
	for i, addr := range addrs {
		p := testPair()
		p.PairAddress = addr
		p.BaseToken.Address = addrs[(i+1)%len(addrs)]
		p.BaseToken.Symbol = fmt.Sprintf("TOK%d", i)
		p.Volume24h = 1000 // identical scores force the tie-break
		pairs = append(pairs, p)
	}

	run := func(q1, q2 []*domain.Pair) []*domain.PairSnapshot {
		src := &fakeSource{byQuery: map[string][]*domain.Pair{"q1": q1, "q2": q2}}
		p, _, snaps := newTestPipeline(src, []string{"q1", "q2"})
		_, err := p.Run(context.Background())
		require.NoError(t, err)
		rows, err := snaps.LatestSync(context.Background())
		require.NoError(t, err)
		return rows
	}

	first := run(pairs[:2], pairs[2:])
	second := run(pairs[2:], pairs[:2])

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].PairAddress, second[i].PairAddress)
		assert.Equal(t, first[i].Rank, second[i].Rank)
	}
}
