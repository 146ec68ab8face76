package pipeline

import (
	"strings"

	"coinswiper/internal/domain"
)

// DedupeByPair collapses duplicate pair addresses, keeping the entry with
// the highest liquidity. The result is independent of input order: ties on
// liquidity fall through to higher volume and then the lexically smaller
// base token address so repeated runs over shuffled input agree.
func DedupeByPair(pairs []*domain.Pair) []*domain.Pair {
	best := make(map[string]*domain.Pair, len(pairs))
	order := make([]string, 0, len(pairs))

	for _, p := range pairs {
		cur, seen := best[p.PairAddress]
		if !seen {
			best[p.PairAddress] = p
			order = append(order, p.PairAddress)
			continue
		}
		if betterDuplicate(p, cur) {
			best[p.PairAddress] = p
		}
	}

	out := make([]*domain.Pair, 0, len(best))
	for _, addr := range order {
		out = append(out, best[addr])
	}
	return out
}

// DedupeBySymbolDex collapses listings that share a lowercased base symbol
// and dex, keeping the highest liquidity. Copycat listings reuse a hot
// symbol on the same dex with a fresh mint; the real pool is the deep one.
func DedupeBySymbolDex(pairs []*domain.Pair) []*domain.Pair {
	best := make(map[string]*domain.Pair, len(pairs))
	order := make([]string, 0, len(pairs))

	for _, p := range pairs {
		key := strings.ToLower(p.BaseToken.Symbol) + "|" + strings.ToLower(p.DexID)
		cur, seen := best[key]
		if !seen {
			best[key] = p
			order = append(order, key)
			continue
		}
		if betterDuplicate(p, cur) {
			best[key] = p
		}
	}

	out := make([]*domain.Pair, 0, len(best))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// DedupeByBaseToken keeps the first pair seen per base token address.
// Callers pass input ordered best-first, so a token listed on several dexes
// keeps only its top-ranked pair.
func DedupeByBaseToken(pairs []*domain.Pair) []*domain.Pair {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]*domain.Pair, 0, len(pairs))

	for _, p := range pairs {
		if _, dup := seen[p.BaseToken.Address]; dup {
			continue
		}
		seen[p.BaseToken.Address] = struct{}{}
		out = append(out, p)
	}
	return out
}

// betterDuplicate picks between two records for the same dedupe key. Liquidity
// wins, then 24h volume, then the lexically smaller base token address, then
// pair address. Within DedupeByPair both records share an address, so the
// earlier tie-breaks must be able to discriminate on their own.
func betterDuplicate(candidate, current *domain.Pair) bool {
	if candidate.LiquidityUSD != current.LiquidityUSD {
		return candidate.LiquidityUSD > current.LiquidityUSD
	}
	if candidate.Volume24h != current.Volume24h {
		return candidate.Volume24h > current.Volume24h
	}
	if candidate.BaseToken.Address != current.BaseToken.Address {
		return candidate.BaseToken.Address < current.BaseToken.Address
	}
	return candidate.PairAddress < current.PairAddress
}
