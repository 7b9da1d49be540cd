package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateSpread(t *testing.T) {
	tests := []struct {
		name         string
		buyPrice     string
		sellPrice    string
		wantAbsolute string
		wantBPS      string
	}{
		{
			name:         "equal_prices_no_spread",
			buyPrice:     "3400.00",
			sellPrice:    "3400.00",
			wantAbsolute: "0",
			wantBPS:      "0",
		},
		{
			name:         "half_percent",
			buyPrice:     "1.000",
			sellPrice:    "1.005",
			wantAbsolute: "0.005",
			wantBPS:      "50",
		},
		{
			name:         "rounded_to_two_decimals",
			buyPrice:     "2845.30",
			sellPrice:    "2851.75",
			wantAbsolute: "6.45",
			wantBPS:      "22.67", // 6.45/2845.30*10000 = 22.6690...
		},
		{
			name:         "zero_buy_price_no_panic",
			buyPrice:     "0",
			sellPrice:    "3400.00",
			wantAbsolute: "3400",
			wantBPS:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CalculateSpread(decimal.RequireFromString(tt.buyPrice), decimal.RequireFromString(tt.sellPrice))

			if !s.Absolute.Equal(decimal.RequireFromString(tt.wantAbsolute)) {
				t.Errorf("Absolute = %s, want %s", s.Absolute, tt.wantAbsolute)
			}
			if !s.BasisPoints.Equal(decimal.RequireFromString(tt.wantBPS)) {
				t.Errorf("BasisPoints = %s, want %s", s.BasisPoints, tt.wantBPS)
			}
		})
	}
}

func TestSpread_GrossProfit(t *testing.T) {
	s := CalculateSpread(decimal.RequireFromString("1.000"), decimal.RequireFromString("1.005"))

	got := s.GrossProfit(decimal.NewFromInt(1000))
	if !got.Equal(decimal.RequireFromString("5")) {
		t.Errorf("GrossProfit = %s, want 5", got)
	}
}

func TestCalculateSpread_Monotonic(t *testing.T) {
	prices := []string{"0.5", "0.99", "1", "1.0001", "1.2", "2845.3", "2851.75", "10000"}

	for _, b := range prices {
		buy := decimal.RequireFromString(b)
		if !CalculateSpread(buy, buy).BasisPoints.IsZero() {
			t.Errorf("spread(%s, %s) should be zero", b, b)
		}

		prev := decimal.NewFromInt(-1 << 40)
		for _, sp := range prices {
			bps := CalculateSpread(buy, decimal.RequireFromString(sp)).BasisPoints
			if bps.LessThan(prev) {
				t.Errorf("spread decreased as sell rose: buy=%s sell=%s bps=%s prev=%s", b, sp, bps, prev)
			}
			prev = bps
		}
	}

	for _, sp := range prices {
		sell := decimal.RequireFromString(sp)
		prev := decimal.NewFromInt(1 << 40)
		for _, b := range prices {
			bps := CalculateSpread(decimal.RequireFromString(b), sell).BasisPoints
			if bps.GreaterThan(prev) {
				t.Errorf("spread increased as buy rose: buy=%s sell=%s bps=%s prev=%s", b, sp, bps, prev)
			}
			prev = bps
		}
	}
}
