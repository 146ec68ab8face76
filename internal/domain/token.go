package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// TokenRecord is the persisted view of a token pair plus its vote tallies.
// One row per unique pair address.
type TokenRecord struct {
	ID          string // UUID assigned by the store
	PairAddress string // unique key for upserts

	BaseTokenAddress  string
	BaseTokenName     string
	BaseTokenSymbol   string
	QuoteTokenAddress string
	QuoteTokenName    string
	QuoteTokenSymbol  string
	DexID             string

	PriceUSD decimal.Decimal
	PriceSOL decimal.Decimal

	Liquidity      float64
	Volume24h      float64
	MarketCap      float64
	FDV            float64
	PriceChange24h float64
	TxnCount24h    int

	TradingViewURL string
	DexScreenerURL string
	ImageURL       string

	BullishVotes      int
	BearishVotes      int
	BullishPercentage int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BullishPercentage computes the rounded share of bullish votes.
// With no votes cast the sentiment is neutral (50).
func BullishPercentage(bullish, bearish int) int {
	total := bullish + bearish
	if total <= 0 {
		return 50
	}
	return int(math.Round(100 * float64(bullish) / float64(total)))
}

// ChartURL builds the embeddable chart URL for a pair.
func ChartURL(chainID, pairAddress string) string {
	return fmt.Sprintf("https://dexscreener.com/chart/%s/%s", chainID, pairAddress)
}

// PairURL builds the public screener page URL for a pair.
func PairURL(chainID, pairAddress string) string {
	return fmt.Sprintf("https://dexscreener.com/%s/%s", chainID, pairAddress)
}
