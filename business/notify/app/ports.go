// Package app contains the dedup cache and alert dispatcher.
package app

import (
	"context"

	"github.com/fd1az/dex-spread-monitor/business/notify/domain"
)

// Sender delivers a message to one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg domain.Message) error
}

// Store persists dedup records as key -> unix seconds.
type Store interface {
	Load(ctx context.Context) (map[string]int64, error)
	Save(ctx context.Context, records map[string]int64) error
}
