package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
)

func newTestReference(t *testing.T, reader ChainReader, venue domain.Venue) *ReferencePrices {
	t.Helper()
	valuer := NewValuer(reader, nil, decimal.NewFromInt(1))
	ref := NewReferencePrices(valuer, venue, usdc, wpol, decimal.RequireFromString("0.5"), time.Minute, nopLogger{})
	t.Cleanup(ref.Close)
	return ref
}

func TestReferencePrices_NativeUSD(t *testing.T) {
	reader := newFakeReader()
	reader.addPair(cpVenue, wpol, usdc, 1_000_000, 400_000)
	ref := newTestReference(t, reader, cpVenue)

	price, onChain := ref.NativeUSD(context.Background())
	if !onChain {
		t.Fatal("expected on-chain price")
	}
	if !price.Equal(decimal.RequireFromString("0.4")) {
		t.Errorf("price = %s, want 0.4", price)
	}

	calls := reader.callCount()
	if _, _ = ref.NativeUSD(context.Background()); reader.callCount() != calls {
		t.Error("second lookup within ttl hit the chain")
	}
}

func TestReferencePrices_FallbackWithoutPool(t *testing.T) {
	ref := newTestReference(t, newFakeReader(), emptyVenue)

	price, onChain := ref.NativeUSD(context.Background())
	if onChain {
		t.Error("expected fallback")
	}
	if !price.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("price = %s, want fallback 0.5", price)
	}
}

func TestReferencePrices_StableIsOneDollar(t *testing.T) {
	reader := newFakeReader()
	ref := newTestReference(t, reader, cpVenue)

	price, err := ref.USD(context.Background(), usdc)
	if err != nil {
		t.Fatalf("USD: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("price = %s, want 1", price)
	}
	if reader.callCount() != 0 {
		t.Errorf("stable lookup made %d calls", reader.callCount())
	}
}
