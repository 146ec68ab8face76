package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token identifies one side of a trading pair.
type Token struct {
	Address string
	Name    string
	Symbol  string
}

// Pair is a transient market-data record for a token pair as reported by
// the upstream screener. Pairs exist only inside a sync run; the survivors
// are mapped to TokenRecord and persisted.
type Pair struct {
	ChainID     string
	DexID       string
	PairAddress string

	BaseToken  Token
	QuoteToken Token

	// Prices are kept as exact decimals so display values do not drift.
	PriceUSD    decimal.Decimal
	PriceNative decimal.Decimal

	LiquidityUSD   float64
	Volume24h      float64
	Volume48h      float64 // zero when the upstream omits the 48h window
	MarketCap      float64
	FDV            float64
	PriceChange24h float64
	Buys24h        int
	Sells24h       int

	PairCreatedAt time.Time
	ImageURL      string

	// Boosted marks tokens with paid visibility on the upstream provider.
	Boosted bool
}

// Txns24h returns the combined buy+sell transaction count over 24h.
func (p *Pair) Txns24h() int {
	return p.Buys24h + p.Sells24h
}

// RankVolume is the trailing volume used for ranking: the 48h window when
// present, the 24h window otherwise.
func (p *Pair) RankVolume() float64 {
	if p.Volume48h > 0 {
		return p.Volume48h
	}
	return p.Volume24h
}
