package domain

import "testing"

func TestBullishPercentage(t *testing.T) {
	tests := []struct {
		name             string
		bullish, bearish int
		want             int
	}{
		{"no votes is neutral", 0, 0, 50},
		{"all bullish", 3, 0, 100},
		{"all bearish", 0, 2, 0},
		{"even split", 5, 5, 50},
		{"rounds half up", 2, 1, 67},
		{"rounds down", 1, 2, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BullishPercentage(tt.bullish, tt.bearish); got != tt.want {
				t.Errorf("BullishPercentage(%d, %d) = %d, want %d", tt.bullish, tt.bearish, got, tt.want)
			}
		})
	}
}

func TestPairRankVolume(t *testing.T) {
	p := Pair{Volume24h: 100, Volume48h: 250}
	if got := p.RankVolume(); got != 250 {
		t.Errorf("RankVolume() = %v, want 250", got)
	}

	p.Volume48h = 0
	if got := p.RankVolume(); got != 100 {
		t.Errorf("RankVolume() = %v, want 100 fallback", got)
	}
}

func TestChartAndPairURLs(t *testing.T) {
	if got := ChartURL("solana", "abc"); got != "https://dexscreener.com/chart/solana/abc" {
		t.Errorf("ChartURL = %q", got)
	}
	if got := PairURL("solana", "abc"); got != "https://dexscreener.com/solana/abc" {
		t.Errorf("PairURL = %q", got)
	}
}
