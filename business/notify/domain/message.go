// Package domain contains the alert message and dedup key types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	arbitrageDomain "github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
)

// SpreadBucketBps is the width of the spread buckets used in dedup keys.
const SpreadBucketBps = 10

// Message is a rendered alert.
type Message struct {
	Title string
	Body  string
}

// DedupKey identifies materially the same opportunity: token, venues and the
// spread rounded to the nearest bucket.
func DedupKey(opp *arbitrageDomain.Opportunity) string {
	bucket := decimal.NewFromInt(SpreadBucketBps)
	rounded := opp.Spread.BasisPoints.Div(bucket).Round(0).Mul(bucket)
	return fmt.Sprintf("%s|%s|%s|%s",
		opp.Token.Symbol(), opp.Buy.VenueID, opp.Sell.VenueID, rounded.StringFixed(0))
}

// FormatOpportunity renders an opportunity alert.
func FormatOpportunity(opp *arbitrageDomain.Opportunity) Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Pair: %s\n", opp.Pair())
	fmt.Fprintf(&b, "Buy: %s @ $%s\n", opp.Buy.VenueID, opp.Buy.PriceUSD.StringFixed(4))
	fmt.Fprintf(&b, "Sell: %s @ $%s\n", opp.Sell.VenueID, opp.Sell.PriceUSD.StringFixed(4))
	fmt.Fprintf(&b, "Spread: %s bps\n", opp.Spread.BasisPoints.StringFixed(2))
	fmt.Fprintf(&b, "Notional: $%s\n", opp.Notional.StringFixed(0))
	fmt.Fprintf(&b, "Gross: $%s\n", opp.GrossProfit.StringFixed(2))
	fmt.Fprintf(&b, "Costs: $%s (gas $%s, fees $%s, slippage $%s)\n",
		opp.Costs.Total.StringFixed(2),
		opp.Costs.Gas.USD.StringFixed(4),
		opp.Costs.Fees.StringFixed(2),
		opp.Costs.Slippage.StringFixed(2),
	)
	fmt.Fprintf(&b, "Adjusted: $%s (ROI %s%%)\n", opp.AdjustedProfit.StringFixed(2), opp.ROIPercent.StringFixed(3))
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", opp.Confidence*100)
	fmt.Fprintf(&b, "Window: %s, execution %s\n",
		opp.Timing.Window.Round(100*time.Millisecond),
		opp.Timing.ExecutionTime.Round(100*time.Millisecond),
	)
	fmt.Fprintf(&b, "Block: #%d", opp.BlockNumber)

	return Message{
		Title: fmt.Sprintf("%s spread %s bps: %s", opp.Token.Symbol(), opp.Spread.BasisPoints.StringFixed(1), opp.Recommendation.String()),
		Body:  b.String(),
	}
}

// Operational returns a plain operational alert.
func Operational(text string) Message {
	return Message{Title: "Spread monitor alert", Body: text}
}
