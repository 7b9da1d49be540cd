package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateSlippage(t *testing.T) {
	tests := []struct {
		name      string
		trade     string
		liquidity string
		tier      uint32
		want      string
	}{
		{"tiny_ratio", "1000", "1000000", 3000, "0.001"},
		{"two_percent_band", "1000", "50000", 3000, "0.03"},
		{"wide_tier_scaled", "1000", "50000", 10000, "0.036"},
		{"tight_tier_scaled", "1000", "1000000", 500, "0.0009"},
		{"five_percent_band", "1000", "25000", 3000, "0.08"},
		{"capped", "1000", "5000", 3000, "0.12"},
		{"no_liquidity", "1000", "0", 3000, "0.12"},
		{"no_trade", "0", "1000000", 3000, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateSlippage(
				decimal.RequireFromString(tt.trade),
				decimal.RequireFromString(tt.liquidity),
				tt.tier,
				decimal.Zero,
			)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("EstimateSlippage = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEstimateSlippage_NonDecreasingInTrade(t *testing.T) {
	liq := decimal.NewFromInt(100000)
	prev := decimal.Zero
	for trade := int64(100); trade <= 50000; trade += 100 {
		got := EstimateSlippage(decimal.NewFromInt(trade), liq, 3000, decimal.Zero)
		if got.LessThan(prev) {
			t.Fatalf("slippage fell from %s to %s at trade %d", prev, got, trade)
		}
		prev = got
	}
}
