package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	arbitrageDomain "github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

func opportunity(bps string) *arbitrageDomain.Opportunity {
	return &arbitrageDomain.Opportunity{
		Token:          asset.PolygonWETH,
		Buy:            pricingDomain.Quote{VenueID: "quickswap", PriceUSD: decimal.RequireFromString("2845.30")},
		Sell:           pricingDomain.Quote{VenueID: "uniswap_v3", PriceUSD: decimal.RequireFromString("2851.75")},
		Notional:       decimal.NewFromInt(1000),
		Spread:         pricingDomain.Spread{BasisPoints: decimal.RequireFromString(bps)},
		GrossProfit:    decimal.RequireFromString("2.27"),
		AdjustedProfit: decimal.RequireFromString("1.05"),
		Confidence:     0.64,
		Recommendation: arbitrageDomain.RecommendationMonitor,
	}
}

func TestDedupKey(t *testing.T) {
	tests := []struct {
		bps  string
		want string
	}{
		{"22.67", "WETH|quickswap|uniswap_v3|20"},
		{"24.99", "WETH|quickswap|uniswap_v3|20"},
		{"25.00", "WETH|quickswap|uniswap_v3|30"},
		{"31.20", "WETH|quickswap|uniswap_v3|30"},
		{"4.90", "WETH|quickswap|uniswap_v3|0"},
		{"118.00", "WETH|quickswap|uniswap_v3|120"},
	}

	for _, tt := range tests {
		t.Run(tt.bps, func(t *testing.T) {
			if got := DedupKey(opportunity(tt.bps)); got != tt.want {
				t.Errorf("DedupKey(%s) = %q, want %q", tt.bps, got, tt.want)
			}
		})
	}
}

func TestDedupKey_NearIdenticalSpreadsCollapse(t *testing.T) {
	a := DedupKey(opportunity("21.10"))
	b := DedupKey(opportunity("23.40"))
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestFormatOpportunity(t *testing.T) {
	msg := FormatOpportunity(opportunity("22.67"))

	if !strings.HasPrefix(msg.Title, "WETH spread 22.7 bps") {
		t.Errorf("title = %q", msg.Title)
	}
	for _, want := range []string{
		"Pair: WETH quickswap->uniswap_v3",
		"Buy: quickswap @ $2845.3000",
		"Spread: 22.67 bps",
		"Adjusted: $1.05",
		"Confidence: 64%",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}
