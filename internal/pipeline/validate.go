package pipeline

import (
	"strings"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"coinswiper/internal/config"
	"coinswiper/internal/domain"
)

// Drop reasons reported per rejected pair.
const (
	dropWrongChain     = "wrong_chain"
	dropDexNotAllowed  = "dex_not_allowed"
	dropBadAddress     = "bad_address"
	dropLowLiquidity   = "low_liquidity"
	dropSuspiciousName = "suspicious_name"
	dropSelfPair       = "self_pair"
	dropTooOld         = "too_old"
)

// Validator filters raw pairs down to the set worth ranking.
type Validator struct {
	cfg config.FilterConfig
	log zerolog.Logger

	allowedDexes map[string]struct{}
	keywords     []string
	infraTokens  []string
}

// NewValidator creates a Validator from filter config.
func NewValidator(cfg config.FilterConfig, log zerolog.Logger) *Validator {
	v := &Validator{
		cfg:          cfg,
		log:          log.With().Str("component", "validator").Logger(),
		allowedDexes: make(map[string]struct{}, len(cfg.AllowedDexes)),
	}
	for _, dex := range cfg.AllowedDexes {
		v.allowedDexes[strings.ToLower(dex)] = struct{}{}
	}
	for _, kw := range cfg.SuspiciousKeywords {
		v.keywords = append(v.keywords, strings.ToLower(kw))
	}
	for _, tok := range cfg.InfrastructureTokens {
		v.infraTokens = append(v.infraTokens, strings.ToLower(tok))
	}
	return v
}

// Filter returns the pairs that pass every gate, plus per-reason drop counts.
func (v *Validator) Filter(pairs []*domain.Pair, now nowFunc) ([]*domain.Pair, map[string]int) {
	kept := make([]*domain.Pair, 0, len(pairs))
	drops := make(map[string]int)

	for _, p := range pairs {
		if reason := v.check(p, now); reason != "" {
			drops[reason]++
			v.log.Debug().
				Str("pair", p.PairAddress).
				Str("symbol", p.BaseToken.Symbol).
				Str("reason", reason).
				Msg("pair rejected")
			continue
		}
		kept = append(kept, p)
	}
	return kept, drops
}

// check returns the first failing gate's reason, or "" if the pair is valid.
func (v *Validator) check(p *domain.Pair, now nowFunc) string {
	if !strings.EqualFold(p.ChainID, v.cfg.ChainID) {
		return dropWrongChain
	}
	if _, ok := v.allowedDexes[strings.ToLower(p.DexID)]; !ok {
		return dropDexNotAllowed
	}
	if !validSolanaAddress(p.PairAddress) ||
		!validSolanaAddress(p.BaseToken.Address) ||
		!validSolanaAddress(p.QuoteToken.Address) {
		return dropBadAddress
	}
	if p.LiquidityUSD < v.cfg.MinLiquidityUSD {
		return dropLowLiquidity
	}
	if v.suspicious(p) {
		return dropSuspiciousName
	}
	if p.BaseToken.Address == p.QuoteToken.Address {
		return dropSelfPair
	}
	if v.cfg.MaxPairAge > 0 && !p.Boosted && !p.PairCreatedAt.IsZero() {
		if now().Sub(p.PairCreatedAt) > v.cfg.MaxPairAge {
			return dropTooOld
		}
	}
	return ""
}

// suspicious reports whether the base token looks like spam, infrastructure,
// or a relabeled copy of its own quote token.
func (v *Validator) suspicious(p *domain.Pair) bool {
	name := strings.ToLower(p.BaseToken.Name)
	symbol := strings.ToLower(p.BaseToken.Symbol)

	if symbol != "" && symbol == strings.ToLower(p.QuoteToken.Symbol) {
		return true
	}
	for _, tok := range v.infraTokens {
		if symbol == tok || strings.Contains(name, tok) {
			return true
		}
	}
	for _, kw := range v.keywords {
		if strings.Contains(name, kw) || strings.Contains(symbol, kw) {
			return true
		}
	}
	return false
}

// validSolanaAddress reports whether s decodes to a 32-byte base58 value.
func validSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}
