package domain

import "time"

// PairSnapshot is one analytics row per selected pair per sync run.
// Snapshots are append-only and live in ClickHouse.
type PairSnapshot struct {
	PairAddress     string
	BaseTokenSymbol string
	DexID           string
	PriceUSD        float64
	Liquidity       float64
	Volume24h       float64
	TxnCount24h     int
	Score           float64
	Rank            int
	SyncedAt        time.Time
}
