package pipeline

import (
	"math"
	"sort"

	"coinswiper/internal/config"
	"coinswiper/internal/domain"
)

// Score computes the trending score for a pair. Higher is more trending.
// Volume and liquidity dominate, transaction count measures activity, and
// large price moves in either direction add weight. Boosted tokens get a
// flat bonus, as do small tokens so established pools do not monopolize
// the board.
func Score(p *domain.Pair, cfg config.ScoringConfig) float64 {
	txns := p.Txns24h()

	score := p.RankVolume()*cfg.VolumeWeight +
		p.LiquidityUSD*cfg.LiquidityWeight +
		float64(txns)*cfg.TxnMultiplier

	if txns > 0 {
		score += cfg.ActivityBonus
	}
	score += math.Abs(p.PriceChange24h) * cfg.PriceChangeMult
	if p.Boosted {
		score += cfg.BoostBonus
	}
	if p.LiquidityUSD < cfg.SmallTokenLiquidity {
		score += cfg.SmallTokenBonus
	}
	return score
}

// scored pairs a pair with its computed score for ranking.
type scored struct {
	pair  *domain.Pair
	score float64
}

// rank scores every pair and orders them best-first. Ties break on pair
// address so the ordering is stable across runs.
func rank(pairs []*domain.Pair, cfg config.ScoringConfig) []scored {
	out := make([]scored, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, scored{pair: p, score: Score(p, cfg)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].pair.PairAddress < out[j].pair.PairAddress
	})
	return out
}
