// Package ethereum provides go-ethereum backed adapters for the blockchain context.
package ethereum

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/app"
)

const (
	tracerName = "github.com/fd1az/dex-spread-monitor/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/dex-spread-monitor/business/blockchain/infra/ethereum"
)

var _ app.Dialer = (*Dialer)(nil)

// Dialer opens ethclient connections.
type Dialer struct{}

// NewDialer creates a Dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial connects to url over HTTP or WebSocket depending on its scheme.
func (d *Dialer) Dial(ctx context.Context, url string) (app.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}
