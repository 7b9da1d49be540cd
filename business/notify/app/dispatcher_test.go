package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	arbitrageDomain "github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-spread-monitor/business/notify/domain"
	pricingDomain "github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

// fakeSender records messages and optionally fails or blocks.
type fakeSender struct {
	name  string
	err   error
	block bool

	mu   sync.Mutex
	msgs []domain.Message
}

func (s *fakeSender) Name() string { return s.name }

func (s *fakeSender) Send(ctx context.Context, msg domain.Message) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func testOpportunity(bps string) *arbitrageDomain.Opportunity {
	return &arbitrageDomain.Opportunity{
		ID:             "opp",
		Token:          asset.PolygonWETH,
		Buy:            pricingDomain.Quote{VenueID: "quickswap", PriceUSD: decimal.RequireFromString("2845.30")},
		Sell:           pricingDomain.Quote{VenueID: "sushiswap", PriceUSD: decimal.RequireFromString("2851.75")},
		Notional:       decimal.NewFromInt(1000),
		Spread:         pricingDomain.Spread{BasisPoints: decimal.RequireFromString(bps)},
		AdjustedProfit: decimal.RequireFromString("4.20"),
		Confidence:     0.7,
		Viable:         true,
		Recommendation: arbitrageDomain.RecommendationExecute,
	}
}

func newTestDispatcher(t *testing.T, timeout time.Duration, senders ...Sender) (*Dispatcher, *Dedup) {
	t.Helper()
	dedup, _ := newTestDedup(&memStore{})
	d, err := NewDispatcher(senders, dedup, timeout, nopLogger{})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d, dedup
}

func TestDispatcher_SendsToAllSenders(t *testing.T) {
	tg := &fakeSender{name: "telegram"}
	dc := &fakeSender{name: "discord"}
	d, _ := newTestDispatcher(t, time.Second, tg, dc)

	sent, err := d.Dispatch(context.Background(), testOpportunity("22.67"))
	if err != nil || !sent {
		t.Fatalf("Dispatch = %v, %v; want true, nil", sent, err)
	}
	if tg.count() != 1 || dc.count() != 1 {
		t.Errorf("deliveries telegram=%d discord=%d, want 1 each", tg.count(), dc.count())
	}
	if !strings.Contains(tg.msgs[0].Body, "WETH quickswap->sushiswap") {
		t.Errorf("body = %q", tg.msgs[0].Body)
	}
}

func TestDispatcher_SuppressesDuplicates(t *testing.T) {
	tg := &fakeSender{name: "telegram"}
	d, _ := newTestDispatcher(t, time.Second, tg)

	if sent, _ := d.Dispatch(context.Background(), testOpportunity("22.67")); !sent {
		t.Fatal("first alert not sent")
	}
	// 24.10 falls in the same 20 bps bucket.
	sent, err := d.Dispatch(context.Background(), testOpportunity("24.10"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sent {
		t.Error("near-identical alert was not suppressed")
	}
	if tg.count() != 1 {
		t.Errorf("deliveries = %d, want 1", tg.count())
	}
}

func TestDispatcher_PartialFailureSucceeds(t *testing.T) {
	tg := &fakeSender{name: "telegram", err: errors.New("401")}
	dc := &fakeSender{name: "discord"}
	d, _ := newTestDispatcher(t, time.Second, tg, dc)

	sent, err := d.Dispatch(context.Background(), testOpportunity("22.67"))
	if err != nil || !sent {
		t.Errorf("Dispatch = %v, %v; want true, nil", sent, err)
	}
}

func TestDispatcher_AllFailReleasesStamp(t *testing.T) {
	tg := &fakeSender{name: "telegram", err: errors.New("502")}
	d, dedup := newTestDispatcher(t, time.Second, tg)
	opp := testOpportunity("22.67")

	sent, err := d.Dispatch(context.Background(), opp)
	if sent {
		t.Error("sent = true with every sender failing")
	}
	if !apperror.HasCode(err, apperror.CodeNotifyFailed) {
		t.Errorf("err = %v, want %s", err, apperror.CodeNotifyFailed)
	}
	if dedup.Len() != 0 {
		t.Error("failed delivery left a dedup stamp")
	}

	tg.err = nil
	if sent, err := d.Dispatch(context.Background(), opp); !sent || err != nil {
		t.Errorf("retry = %v, %v; want true, nil", sent, err)
	}
}

func TestDispatcher_Timeout(t *testing.T) {
	d, _ := newTestDispatcher(t, 20*time.Millisecond, &fakeSender{name: "slow", block: true})

	_, err := d.Dispatch(context.Background(), testOpportunity("22.67"))
	if !apperror.HasCode(err, apperror.CodeNotifyTimeout) {
		t.Errorf("err = %v, want %s", err, apperror.CodeNotifyTimeout)
	}
}

func TestDispatcher_NoSenders(t *testing.T) {
	d, _ := newTestDispatcher(t, time.Second)

	sent, err := d.Dispatch(context.Background(), testOpportunity("22.67"))
	if err != nil || !sent {
		t.Errorf("Dispatch = %v, %v; want true, nil", sent, err)
	}
}

func TestDispatcher_AlertBypassesDedup(t *testing.T) {
	tg := &fakeSender{name: "telegram"}
	d, dedup := newTestDispatcher(t, time.Second, tg)

	for i := 0; i < 2; i++ {
		if err := d.Alert(context.Background(), "endpoint pool exhausted"); err != nil {
			t.Fatalf("Alert: %v", err)
		}
	}
	if tg.count() != 2 {
		t.Errorf("deliveries = %d, want 2", tg.count())
	}
	if dedup.Len() != 0 {
		t.Error("operational alert stamped the dedup cache")
	}
	if tg.msgs[0].Body != "endpoint pool exhausted" {
		t.Errorf("body = %q", tg.msgs[0].Body)
	}
}
