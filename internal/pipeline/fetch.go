package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"coinswiper/internal/dexscreener"
	"coinswiper/internal/domain"
)

// DefaultQueries are the broad search terms fanned out on every sync run.
// One query per allow-listed dex is added on top, so the full fan-out
// covers both the high-volume pools and the meme long tail.
var DefaultQueries = []string{
	"solana",
	"sol",
	"pump",
	"bonk",
	"meme",
}

// buildQueries merges the default terms with one query per allowed dex,
// dropping duplicates while keeping order.
func buildQueries(allowedDexes []string) []string {
	seen := make(map[string]struct{}, len(DefaultQueries)+len(allowedDexes))
	out := make([]string, 0, len(DefaultQueries)+len(allowedDexes))

	add := func(q string) {
		q = strings.ToLower(q)
		if _, dup := seen[q]; dup || q == "" {
			return
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}

	for _, q := range DefaultQueries {
		add(q)
	}
	for _, dex := range allowedDexes {
		add(dex)
	}
	return out
}

// MarketSource is the slice of the upstream API the pipeline consumes.
type MarketSource interface {
	SearchPairs(ctx context.Context, query string) ([]*domain.Pair, error)
	PairsByToken(ctx context.Context, chainID string, addresses ...string) ([]*domain.Pair, error)
	LatestTokenProfiles(ctx context.Context) ([]dexscreener.TokenProfile, error)
	LatestTokenBoosts(ctx context.Context) ([]dexscreener.TokenBoost, error)
	TopTokenBoosts(ctx context.Context) ([]dexscreener.TokenBoost, error)
}

// queryResult tags one query's outcome so failures stay attributable.
type queryResult struct {
	query string
	pairs []*domain.Pair
	err   error
}

// fetchAll runs every query through a bounded worker pool and merges the
// successful results. A failing query is logged and skipped; the run only
// fails when every query fails.
func fetchAll(ctx context.Context, src MarketSource, queries []string, workers int, log zerolog.Logger) ([]*domain.Pair, error) {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan queryResult, len(queries))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range jobs {
				pairs, err := src.SearchPairs(ctx, q)
				results <- queryResult{query: q, pairs: pairs, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, q := range queries {
			select {
			case jobs <- q:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var merged []*domain.Pair
	var firstErr error
	failed := 0

	for res := range results {
		if res.err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.err
			}
			log.Warn().Err(res.err).Str("query", res.query).Msg("search query failed")
			continue
		}
		merged = append(merged, res.pairs...)
	}

	if failed == len(queries) && firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

// boostedTokens merges the latest and top boost feeds into one address set.
// Boost feeds are best-effort; a failure just means no boost bonuses this run.
func boostedTokens(ctx context.Context, src MarketSource, log zerolog.Logger) map[string]struct{} {
	set := make(map[string]struct{})

	latest, err := src.LatestTokenBoosts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("latest boosts unavailable")
	}
	top, err := src.TopTokenBoosts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("top boosts unavailable")
	}

	for _, b := range latest {
		set[b.TokenAddress] = struct{}{}
	}
	for _, b := range top {
		set[b.TokenAddress] = struct{}{}
	}
	return set
}

// tokenBatchSize is the upstream limit on addresses per pairs-by-token call.
const tokenBatchSize = 30

// maxBoostedLookups caps how many boosted addresses get a direct pair
// lookup per run; the boost feeds can be long and the budget is shared.
const maxBoostedLookups = 60

// boostedPairs looks up pairs for boosted tokens directly, so paid
// placements surface even when no search query returns them. Best-effort.
func boostedPairs(ctx context.Context, src MarketSource, chainID string, boosted map[string]struct{}, log zerolog.Logger) []*domain.Pair {
	if len(boosted) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(boosted))
	for addr := range boosted {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	if len(addrs) > maxBoostedLookups {
		addrs = addrs[:maxBoostedLookups]
	}

	var out []*domain.Pair
	for start := 0; start < len(addrs); start += tokenBatchSize {
		end := start + tokenBatchSize
		if end > len(addrs) {
			end = len(addrs)
		}
		pairs, err := src.PairsByToken(ctx, chainID, addrs[start:end]...)
		if err != nil {
			log.Warn().Err(err).Msg("boosted pair lookup failed")
			continue
		}
		out = append(out, pairs...)
	}
	return out
}

// profileIcons maps token address to icon URL from the latest profiles feed.
func profileIcons(ctx context.Context, src MarketSource, log zerolog.Logger) map[string]string {
	profiles, err := src.LatestTokenProfiles(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("token profiles unavailable")
		return nil
	}

	icons := make(map[string]string, len(profiles))
	for _, p := range profiles {
		if p.Icon != "" {
			icons[p.TokenAddress] = p.Icon
		}
	}
	return icons
}
