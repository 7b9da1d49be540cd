// Package di contains dependency injection tokens for the notify context.
package di

import (
	"github.com/fd1az/dex-spread-monitor/business/notify/app"
	"github.com/fd1az/dex-spread-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Dispatcher = di.NewToken[*app.Dispatcher]("notify.Dispatcher")
)

// Private dependency tokens - internal to notify module
var (
	Dedup   = di.NewToken[*app.Dedup]("notify:dedup")
	Store   = di.NewToken[app.Store]("notify:store")
	Senders = di.NewToken[[]app.Sender]("notify:senders")
)

// Helper functions for type-safe access
func GetDispatcher(c di.ServiceRegistry) *app.Dispatcher {
	return di.GetToken(c, Dispatcher)
}

func GetDedup(c di.ServiceRegistry) *app.Dedup {
	return di.GetToken(c, Dedup)
}

func GetStore(c di.ServiceRegistry) app.Store {
	return di.GetToken(c, Store)
}

func GetSenders(c di.ServiceRegistry) []app.Sender {
	return di.GetToken(c, Senders)
}
