package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewGasCost(t *testing.T) {
	tests := []struct {
		name        string
		units       uint64
		gasPriceWei string
		nativeUSD   string
		wantNative  string
		wantUSD     string
	}{
		{
			name:        "direct_swap_30gwei",
			units:       150_000,
			gasPriceWei: "30000000000",
			nativeUSD:   "0.5",
			wantNative:  "0.0045", // 150000 * 30 gwei
			wantUSD:     "0.00225",
		},
		{
			name:        "multi_hop_50gwei",
			units:       240_000,
			gasPriceWei: "50000000000",
			nativeUSD:   "0.5",
			wantNative:  "0.012",
			wantUSD:     "0.006",
		},
		{
			name:        "expensive_native",
			units:       200_000,
			gasPriceWei: "25000000000",
			nativeUSD:   "3400",
			wantNative:  "0.005",
			wantUSD:     "17",
		},
		{
			name:        "zero_units",
			units:       0,
			gasPriceWei: "25000000000",
			nativeUSD:   "3400",
			wantNative:  "0",
			wantUSD:     "0",
		},
		{
			name:        "zero_gas_price",
			units:       150_000,
			gasPriceWei: "0",
			nativeUSD:   "0.5",
			wantNative:  "0",
			wantUSD:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := new(big.Int).SetString(tt.gasPriceWei, 10)
			if !ok {
				t.Fatalf("bad gas price %q", tt.gasPriceWei)
			}

			gc := NewGasCost(tt.units, price, decimal.RequireFromString(tt.nativeUSD))

			if gc.Units != tt.units {
				t.Errorf("Units = %d, want %d", gc.Units, tt.units)
			}
			if want := decimal.RequireFromString(tt.wantNative); !gc.Native.Equal(want) {
				t.Errorf("Native = %s, want %s", gc.Native, want)
			}
			if want := decimal.RequireFromString(tt.wantUSD); !gc.USD.Equal(want) {
				t.Errorf("USD = %s, want %s", gc.USD, want)
			}
		})
	}
}

func TestGasCost_TotalWei(t *testing.T) {
	price := big.NewInt(25_000_000_000)

	gc := NewGasCost(200_000, price, decimal.NewFromInt(1))

	want := new(big.Int).Mul(big.NewInt(200_000), price)
	if gc.TotalWei.Cmp(want) != 0 {
		t.Errorf("TotalWei = %s, want %s", gc.TotalWei, want)
	}

	// The cost keeps its own copy of the price.
	price.SetInt64(1)
	if gc.GasPrice.Int64() != 25_000_000_000 {
		t.Errorf("GasPrice aliased caller value: %s", gc.GasPrice)
	}
}

func TestCostBreakdown_Total(t *testing.T) {
	gc := NewGasCost(150_000, big.NewInt(30_000_000_000), decimal.RequireFromString("0.5"))

	cb := newCostBreakdown(gc,
		decimal.RequireFromString("6"),
		decimal.RequireFromString("2.5"),
		decimal.RequireFromString("0.25"),
	)

	want := decimal.RequireFromString("8.75225")
	if !cb.Total.Equal(want) {
		t.Errorf("Total = %s, want %s", cb.Total, want)
	}
}
