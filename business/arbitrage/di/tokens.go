// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/dex-spread-monitor/business/arbitrage/app"
	"github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-spread-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Detector  = di.NewToken[*app.Detector]("arbitrage.Detector")
	Scheduler = di.NewToken[*app.Scheduler]("arbitrage.Scheduler")
)

// Private dependency tokens - internal to arbitrage module
var (
	Model    = di.NewToken[*domain.Model]("arbitrage:model")
	Reporter = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetScheduler(c di.ServiceRegistry) *app.Scheduler {
	return di.GetToken(c, Scheduler)
}

func GetModel(c di.ServiceRegistry) *domain.Model {
	return di.GetToken(c, Model)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
