// Package pipeline turns raw screener data into the persisted token board.
// A run fetches candidate pairs, filters and deduplicates them, ranks the
// survivors by trending score, and upserts the top slice while preserving
// accumulated votes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"coinswiper/internal/config"
	"coinswiper/internal/domain"
	"coinswiper/internal/observability"
	"coinswiper/internal/storage"
)

type nowFunc func() time.Time

// RankedPair is one board entry, echoed by the sync API in rank order.
type RankedPair struct {
	Rank        int     `json:"rank"`
	PairAddress string  `json:"pairAddress"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	DexID       string  `json:"dexId"`
	PriceUSD    string  `json:"priceUsd"`
	Liquidity   float64 `json:"liquidity"`
	Volume24h   float64 `json:"volume24h"`
	Score       float64 `json:"score"`
}

// Result summarizes one sync run.
type Result struct {
	Fetched       int            // raw pairs returned by all queries
	Dropped       map[string]int // validation drops by reason
	Ranked        int            // pairs that survived validation and dedupe
	Stored        int            // records upserted this run
	DatabaseCount int            // total records after the run
	Pairs         []RankedPair   // the selected board, best first
	Duration      time.Duration
}

// Pipeline owns one sync flow from upstream fetch to persisted records.
type Pipeline struct {
	src       MarketSource
	tokens    storage.TokenStore
	snapshots storage.SnapshotStore // nil disables analytics snapshots

	validator *Validator
	queries   []string
	sync      config.SyncConfig
	scoring   config.ScoringConfig
	chainID   string

	log zerolog.Logger
	now nowFunc
}

// New creates a Pipeline. snapshots may be nil.
func New(cfg *config.Config, src MarketSource, tokens storage.TokenStore, snapshots storage.SnapshotStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		src:       src,
		tokens:    tokens,
		snapshots: snapshots,
		validator: NewValidator(cfg.Filters, log),
		queries:   buildQueries(cfg.Filters.AllowedDexes),
		sync:      cfg.Sync,
		scoring:   cfg.Scoring,
		chainID:   cfg.Filters.ChainID,
		log:       log.With().Str("component", "pipeline").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one full sync and reports what happened.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.now()

	raw, err := fetchAll(ctx, p.src, p.queries, p.sync.FetchWorkers, p.log)
	if err != nil {
		observability.RecordSyncRun("fetch_failed", 0)
		return nil, fmt.Errorf("fetch pairs: %w", err)
	}

	boosted := boostedTokens(ctx, p.src, p.log)
	raw = append(raw, boostedPairs(ctx, p.src, p.chainID, boosted, p.log)...)
	for _, pair := range raw {
		if _, ok := boosted[pair.BaseToken.Address]; ok {
			pair.Boosted = true
		}
	}
	observability.RecordPairsFetched(len(raw))

	valid, drops := p.validator.Filter(raw, p.now)
	for reason, n := range drops {
		observability.RecordPairsDropped(reason, n)
	}
	deduped := DedupeBySymbolDex(DedupeByPair(valid))
	ranked := rank(deduped, p.scoring)

	ordered := make([]*domain.Pair, 0, len(ranked))
	scores := make(map[string]float64, len(ranked))
	for _, s := range ranked {
		ordered = append(ordered, s.pair)
		scores[s.pair.PairAddress] = s.score
	}
	ordered = DedupeByBaseToken(ordered)

	top := ordered
	if p.sync.MaxTokens > 0 && len(top) > p.sync.MaxTokens {
		top = top[:p.sync.MaxTokens]
	}

	p.enrichImages(ctx, top)

	stored, err := p.persist(ctx, top)
	if err != nil {
		observability.RecordSyncRun("store_failed", 0)
		return nil, err
	}

	if err := p.snapshot(ctx, top, scores, started); err != nil {
		// Analytics rows are best-effort; the board is already updated.
		p.log.Warn().Err(err).Msg("snapshot insert failed")
	}

	total, err := p.tokens.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	echo := make([]RankedPair, 0, len(top))
	for i, pair := range top {
		echo = append(echo, RankedPair{
			Rank:        i + 1,
			PairAddress: pair.PairAddress,
			Symbol:      pair.BaseToken.Symbol,
			Name:        pair.BaseToken.Name,
			DexID:       pair.DexID,
			PriceUSD:    pair.PriceUSD.String(),
			Liquidity:   pair.LiquidityUSD,
			Volume24h:   pair.Volume24h,
			Score:       scores[pair.PairAddress],
		})
	}

	res := &Result{
		Fetched:       len(raw),
		Dropped:       drops,
		Ranked:        len(ordered),
		Stored:        stored,
		DatabaseCount: total,
		Pairs:         echo,
		Duration:      p.now().Sub(started),
	}

	observability.RecordSyncRun("ok", res.Duration.Seconds())
	observability.SetTrackedTokens(total)

	p.log.Info().
		Int("fetched", res.Fetched).
		Int("ranked", res.Ranked).
		Int("stored", res.Stored).
		Int("total", res.DatabaseCount).
		Dur("duration", res.Duration).
		Msg("sync complete")
	return res, nil
}

// enrichImages fills missing image URLs from the profiles feed.
func (p *Pipeline) enrichImages(ctx context.Context, pairs []*domain.Pair) {
	missing := false
	for _, pair := range pairs {
		if pair.ImageURL == "" {
			missing = true
			break
		}
	}
	if !missing {
		return
	}

	icons := profileIcons(ctx, p.src, p.log)
	for _, pair := range pairs {
		if pair.ImageURL == "" {
			pair.ImageURL = icons[pair.BaseToken.Address]
		}
	}
}

// persist upserts the selected pairs, continuing past individual failures.
func (p *Pipeline) persist(ctx context.Context, pairs []*domain.Pair) (int, error) {
	stored := 0
	var lastErr error

	for _, pair := range pairs {
		rec := recordFromPair(pair, p.chainID)
		if _, err := p.tokens.Upsert(ctx, rec); err != nil {
			lastErr = err
			p.log.Error().Err(err).Str("pair", pair.PairAddress).Msg("upsert failed")
			continue
		}
		stored++
	}

	if stored == 0 && lastErr != nil {
		return 0, fmt.Errorf("persist pairs: %w", lastErr)
	}
	return stored, nil
}

// snapshot writes one analytics row per selected pair, all sharing the run
// timestamp so a run can be queried as a unit.
func (p *Pipeline) snapshot(ctx context.Context, pairs []*domain.Pair, scores map[string]float64, syncedAt time.Time) error {
	if p.snapshots == nil || len(pairs) == 0 {
		return nil
	}

	snaps := make([]*domain.PairSnapshot, 0, len(pairs))
	for i, pair := range pairs {
		priceUSD, _ := pair.PriceUSD.Float64()
		snaps = append(snaps, &domain.PairSnapshot{
			PairAddress:     pair.PairAddress,
			BaseTokenSymbol: pair.BaseToken.Symbol,
			DexID:           pair.DexID,
			PriceUSD:        priceUSD,
			Liquidity:       pair.LiquidityUSD,
			Volume24h:       pair.Volume24h,
			TxnCount24h:     pair.Txns24h(),
			Score:           scores[pair.PairAddress],
			Rank:            i + 1,
			SyncedAt:        syncedAt,
		})
	}
	return p.snapshots.InsertBatch(ctx, snaps)
}

// recordFromPair maps a ranked pair to its persisted form. Vote fields are
// zero here; the store preserves existing tallies on update.
func recordFromPair(pair *domain.Pair, chainID string) *domain.TokenRecord {
	return &domain.TokenRecord{
		PairAddress:       pair.PairAddress,
		BaseTokenAddress:  pair.BaseToken.Address,
		BaseTokenName:     pair.BaseToken.Name,
		BaseTokenSymbol:   pair.BaseToken.Symbol,
		QuoteTokenAddress: pair.QuoteToken.Address,
		QuoteTokenName:    pair.QuoteToken.Name,
		QuoteTokenSymbol:  pair.QuoteToken.Symbol,
		DexID:             pair.DexID,
		PriceUSD:          pair.PriceUSD,
		PriceSOL:          pair.PriceNative,
		Liquidity:         pair.LiquidityUSD,
		Volume24h:         pair.Volume24h,
		MarketCap:         pair.MarketCap,
		FDV:               pair.FDV,
		PriceChange24h:    pair.PriceChange24h,
		TxnCount24h:       pair.Txns24h(),
		TradingViewURL:    domain.ChartURL(chainID, pair.PairAddress),
		DexScreenerURL:    domain.PairURL(chainID, pair.PairAddress),
		ImageURL:          pair.ImageURL,
	}
}
