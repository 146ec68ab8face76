package dexscreener

import (
	"time"

	"github.com/shopspring/decimal"

	"coinswiper/internal/domain"
)

// searchResponse is the envelope returned by the /latest/dex endpoints.
type searchResponse struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []pairJSON `json:"pairs"`
}

// pairJSON mirrors the upstream pair schema.
type pairJSON struct {
	ChainID       string          `json:"chainId"`
	DexID         string          `json:"dexId"`
	URL           string          `json:"url"`
	PairAddress   string          `json:"pairAddress"`
	BaseToken     tokenJSON       `json:"baseToken"`
	QuoteToken    tokenJSON       `json:"quoteToken"`
	PriceNative   string          `json:"priceNative"`
	PriceUSD      string          `json:"priceUsd"`
	Txns          txnsJSON        `json:"txns"`
	Volume        volumeJSON      `json:"volume"`
	PriceChange   priceChangeJSON `json:"priceChange"`
	Liquidity     *liquidityJSON  `json:"liquidity"` // nullable upstream
	FDV           float64         `json:"fdv"`
	MarketCap     float64         `json:"marketCap"`
	PairCreatedAt int64           `json:"pairCreatedAt"` // ms epoch
	Info          *pairInfoJSON   `json:"info"`
}

type tokenJSON struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type liquidityJSON struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type txnsJSON struct {
	M5  txnSummaryJSON `json:"m5"`
	H1  txnSummaryJSON `json:"h1"`
	H6  txnSummaryJSON `json:"h6"`
	H24 txnSummaryJSON `json:"h24"`
}

type txnSummaryJSON struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type volumeJSON struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
	H48 float64 `json:"h48"`
}

type priceChangeJSON struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

type pairInfoJSON struct {
	ImageURL string `json:"imageUrl"`
}

// TokenProfile is an upstream profile entry carrying display metadata.
type TokenProfile struct {
	URL          string `json:"url"`
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Icon         string `json:"icon"`
	Header       string `json:"header"`
	Description  string `json:"description"`
}

// TokenBoost is an upstream paid-visibility entry.
type TokenBoost struct {
	URL          string  `json:"url"`
	ChainID      string  `json:"chainId"`
	TokenAddress string  `json:"tokenAddress"`
	Amount       float64 `json:"amount"`
	TotalAmount  float64 `json:"totalAmount"`
}

func toDomainPairs(pairs []pairJSON) []*domain.Pair {
	out := make([]*domain.Pair, 0, len(pairs))
	for i := range pairs {
		out = append(out, pairs[i].toDomain())
	}
	return out
}

// toDomain converts a wire pair to the domain representation. Unparseable
// prices map to zero rather than failing the whole response.
func (p *pairJSON) toDomain() *domain.Pair {
	out := &domain.Pair{
		ChainID:     p.ChainID,
		DexID:       p.DexID,
		PairAddress: p.PairAddress,
		BaseToken: domain.Token{
			Address: p.BaseToken.Address,
			Name:    p.BaseToken.Name,
			Symbol:  p.BaseToken.Symbol,
		},
		QuoteToken: domain.Token{
			Address: p.QuoteToken.Address,
			Name:    p.QuoteToken.Name,
			Symbol:  p.QuoteToken.Symbol,
		},
		Volume24h:      p.Volume.H24,
		Volume48h:      p.Volume.H48,
		MarketCap:      p.MarketCap,
		FDV:            p.FDV,
		PriceChange24h: p.PriceChange.H24,
		Buys24h:        p.Txns.H24.Buys,
		Sells24h:       p.Txns.H24.Sells,
	}

	if p.Liquidity != nil {
		out.LiquidityUSD = p.Liquidity.USD
	}
	if d, err := decimal.NewFromString(p.PriceUSD); err == nil {
		out.PriceUSD = d
	}
	if d, err := decimal.NewFromString(p.PriceNative); err == nil {
		out.PriceNative = d
	}
	if p.PairCreatedAt > 0 {
		out.PairCreatedAt = time.UnixMilli(p.PairCreatedAt).UTC()
	}
	if p.Info != nil {
		out.ImageURL = p.Info.ImageURL
	}
	return out
}
