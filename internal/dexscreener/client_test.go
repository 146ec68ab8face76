package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFixture = `{
	"schemaVersion": "1.0.0",
	"pairs": [
		{
			"chainId": "solana",
			"dexId": "raydium",
			"url": "https://dexscreener.com/solana/abc",
			"pairAddress": "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
			"baseToken": {"address": "So11111111111111111111111111111111111111112", "name": "Wrapped SOL", "symbol": "SOL"},
			"quoteToken": {"address": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "name": "USD Coin", "symbol": "USDC"},
			"priceNative": "1.0",
			"priceUsd": "142.35",
			"txns": {"h24": {"buys": 120, "sells": 80}},
			"volume": {"h24": 50000.5, "h48": 90000},
			"priceChange": {"h24": -3.2},
			"liquidity": {"usd": 250000, "base": 1000, "quote": 140000},
			"fdv": 1000000,
			"marketCap": 800000,
			"pairCreatedAt": 1700000000000,
			"info": {"imageUrl": "https://img.example/sol.png"}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
}

func TestSearchPairs(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchFixture))
	})

	pairs, err := client.SearchPairs(context.Background(), "SOL/USDC")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "/latest/dex/search?q=SOL%2FUSDC", gotPath)

	p := pairs[0]
	assert.Equal(t, "solana", p.ChainID)
	assert.Equal(t, "raydium", p.DexID)
	assert.Equal(t, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", p.PairAddress)
	assert.Equal(t, "SOL", p.BaseToken.Symbol)
	assert.Equal(t, "142.35", p.PriceUSD.String())
	assert.Equal(t, 250000.0, p.LiquidityUSD)
	assert.Equal(t, 50000.5, p.Volume24h)
	assert.Equal(t, 200, p.Txns24h())
	assert.Equal(t, -3.2, p.PriceChange24h)
	assert.Equal(t, "https://img.example/sol.png", p.ImageURL)
	assert.False(t, p.PairCreatedAt.IsZero())
}

func TestSearchPairsNullLiquidity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":[{"chainId":"solana","dexId":"orca","pairAddress":"x","priceUsd":"not-a-number","liquidity":null}]}`))
	})

	pairs, err := client.SearchPairs(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 0.0, pairs[0].LiquidityUSD)
	assert.True(t, pairs[0].PriceUSD.IsZero())
}

func TestPairsByToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/v1/solana/addr1,addr2", r.URL.Path)
		w.Write([]byte(`[{"chainId":"solana","dexId":"raydium","pairAddress":"p1","priceUsd":"0.5"}]`))
	})

	pairs, err := client.PairsByToken(context.Background(), "solana", "addr1", "addr2")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "p1", pairs[0].PairAddress)
}

func TestPairsByTokenAddressLimit(t *testing.T) {
	client := NewClient(zerolog.Nop())

	addrs := make([]string, 31)
	for i := range addrs {
		addrs[i] = "a"
	}
	_, err := client.PairsByToken(context.Background(), "solana", addrs...)
	assert.Error(t, err)
}

func TestPairsByTokenEmpty(t *testing.T) {
	client := NewClient(zerolog.Nop())

	pairs, err := client.PairsByToken(context.Background(), "solana")
	require.NoError(t, err)
	assert.Nil(t, pairs)
}

func TestLatestTokenBoosts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token-boosts/latest/v1", r.URL.Path)
		w.Write([]byte(`[{"chainId":"solana","tokenAddress":"tok1","amount":100,"totalAmount":500}]`))
	})

	boosts, err := client.LatestTokenBoosts(context.Background())
	require.NoError(t, err)
	require.Len(t, boosts, 1)
	assert.Equal(t, "tok1", boosts[0].TokenAddress)
	assert.Equal(t, 500.0, boosts[0].TotalAmount)
}

func TestLatestTokenProfiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token-profiles/latest/v1", r.URL.Path)
		w.Write([]byte(`[{"chainId":"solana","tokenAddress":"tok1","icon":"https://img.example/i.png"}]`))
	})

	profiles, err := client.LatestTokenProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "https://img.example/i.png", profiles[0].Icon)
}

func TestUpstreamErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.SearchPairs(context.Background(), "x")
	assert.ErrorContains(t, err, "unexpected status 429")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := client.SearchPairs(ctx, "x")
		require.Error(t, err)
	}

	_, err := client.SearchPairs(ctx, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}
