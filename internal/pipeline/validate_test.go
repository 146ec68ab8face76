package pipeline

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"coinswiper/internal/config"
	"coinswiper/internal/domain"
)

const (
	addrSOL  = "So11111111111111111111111111111111111111112"
	addrUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	addrBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	addrWIF  = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
	addrRAY  = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	addrPair = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

func testPair() *domain.Pair {
	return &domain.Pair{
		ChainID:      "solana",
		DexID:        "raydium",
		PairAddress:  addrPair,
		BaseToken:    domain.Token{Address: addrBONK, Name: "Bonk", Symbol: "BONK"},
		QuoteToken:   domain.Token{Address: addrSOL, Name: "Wrapped SOL", Symbol: "SOL"},
		LiquidityUSD: 100_000,
		Volume24h:    50_000,
		Buys24h:      100,
		Sells24h:     50,
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
}

func runCheck(t *testing.T, cfg config.FilterConfig, p *domain.Pair) string {
	t.Helper()
	return NewValidator(cfg, zerolog.Nop()).check(p, fixedNow)
}

func TestValidatorAcceptsGoodPair(t *testing.T) {
	assert.Empty(t, runCheck(t, config.Default().Filters, testPair()))
}

func TestValidatorWrongChain(t *testing.T) {
	p := testPair()
	p.ChainID = "ethereum"
	assert.Equal(t, dropWrongChain, runCheck(t, config.Default().Filters, p))
}

func TestValidatorDexAllowlistCaseInsensitive(t *testing.T) {
	p := testPair()
	p.DexID = "Raydium"
	assert.Empty(t, runCheck(t, config.Default().Filters, p))

	p.DexID = "pumpswap"
	assert.Equal(t, dropDexNotAllowed, runCheck(t, config.Default().Filters, p))
}

func TestValidatorBadAddress(t *testing.T) {
	p := testPair()
	p.BaseToken.Address = "not-base58-0OIl"
	assert.Equal(t, dropBadAddress, runCheck(t, config.Default().Filters, p))

	p = testPair()
	p.PairAddress = "abc" // too short
	assert.Equal(t, dropBadAddress, runCheck(t, config.Default().Filters, p))
}

func TestValidatorLiquidityFloor(t *testing.T) {
	p := testPair()
	p.LiquidityUSD = 9.99
	assert.Equal(t, dropLowLiquidity, runCheck(t, config.Default().Filters, p))

	p.LiquidityUSD = 10
	assert.Empty(t, runCheck(t, config.Default().Filters, p))
}

func TestValidatorSuspiciousName(t *testing.T) {
	p := testPair()
	p.BaseToken.Name = "Totally Real SCAM Coin"
	assert.Equal(t, dropSuspiciousName, runCheck(t, config.Default().Filters, p))

	p = testPair()
	p.BaseToken.Symbol = "TESTX"
	assert.Equal(t, dropSuspiciousName, runCheck(t, config.Default().Filters, p))
}

func TestValidatorInfrastructureBase(t *testing.T) {
	p := testPair()
	p.BaseToken = domain.Token{Address: addrUSDC, Name: "USD Coin", Symbol: "USDC"}
	assert.Equal(t, dropSuspiciousName, runCheck(t, config.Default().Filters, p))
}

func TestValidatorInfrastructureNameContainment(t *testing.T) {
	p := testPair()
	p.BaseToken = domain.Token{Address: addrWIF, Name: "USDC Reserve", Symbol: "RSRV"}
	assert.Equal(t, dropSuspiciousName, runCheck(t, config.Default().Filters, p))
}

func TestValidatorBaseSymbolMatchesQuote(t *testing.T) {
	p := testPair()
	p.BaseToken = domain.Token{Address: addrWIF, Name: "Wrapped SOL", Symbol: "sol"}
	assert.Equal(t, dropSuspiciousName, runCheck(t, config.Default().Filters, p))
}

func TestValidatorSelfPair(t *testing.T) {
	p := testPair()
	p.QuoteToken.Address = p.BaseToken.Address
	assert.Equal(t, dropSelfPair, runCheck(t, config.Default().Filters, p))
}

func TestValidatorAgeGate(t *testing.T) {
	cfg := config.Default().Filters
	cfg.MaxPairAge = 24 * time.Hour

	p := testPair()
	p.PairCreatedAt = fixedNow().Add(-48 * time.Hour)
	assert.Equal(t, dropTooOld, runCheck(t, cfg, p))

	// Boosted pairs bypass the gate.
	p.Boosted = true
	assert.Empty(t, runCheck(t, cfg, p))

	// Gate disabled by default.
	p.Boosted = false
	assert.Empty(t, runCheck(t, config.Default().Filters, p))
}

func TestValidatorFilterCountsDrops(t *testing.T) {
	bad := testPair()
	bad.LiquidityUSD = 1

	v := NewValidator(config.Default().Filters, zerolog.Nop())
	kept, drops := v.Filter([]*domain.Pair{testPair(), bad}, fixedNow)

	assert.Len(t, kept, 1)
	assert.Equal(t, map[string]int{dropLowLiquidity: 1}, drops)
}
