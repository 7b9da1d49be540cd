// Package notify delivers opportunity and operational alerts with dedup.
package notify

import (
	"context"
	"sync"

	"github.com/fd1az/dex-spread-monitor/business/notify/app"
	notifyDI "github.com/fd1az/dex-spread-monitor/business/notify/di"
	"github.com/fd1az/dex-spread-monitor/business/notify/infra"
	"github.com/fd1az/dex-spread-monitor/internal/config"
	"github.com/fd1az/dex-spread-monitor/internal/di"
	"github.com/fd1az/dex-spread-monitor/internal/httpclient"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/monolith"
)

// Module implements the notify bounded context.
type Module struct {
	services di.ServiceRegistry
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// RegisterServices registers all notify services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, notifyDI.Store, func(sr di.ServiceRegistry) app.Store {
		cfg := sr.Get("config").(*config.Config)

		if cfg.Dedup.Backend == "redis" {
			store, err := infra.NewRedisStore(context.Background(), infra.RedisConfig{
				Addr:     cfg.Dedup.Redis.Addr,
				Password: cfg.Dedup.Redis.Password,
				DB:       cfg.Dedup.Redis.DB,
				Key:      cfg.Dedup.Redis.Key,
			})
			if err != nil {
				panic("failed to connect dedup store: " + err.Error())
			}
			return store
		}
		return infra.NewFileStore(cfg.Dedup.Path)
	})

	di.RegisterToken(c, notifyDI.Dedup, func(sr di.ServiceRegistry) *app.Dedup {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewDedup(app.DedupConfig{
			Cooldown:      cfg.Dedup.Cooldown,
			Retention:     cfg.Dedup.Retention,
			FlushInterval: cfg.Dedup.FlushInterval,
		}, notifyDI.GetStore(sr), log)
	})

	di.RegisterToken(c, notifyDI.Senders, func(sr di.ServiceRegistry) []app.Sender {
		cfg := sr.Get("config").(*config.Config)

		senders, err := SendersFrom(cfg.Notify)
		if err != nil {
			panic("failed to create senders: " + err.Error())
		}
		return senders
	})

	di.RegisterToken(c, notifyDI.Dispatcher, func(sr di.ServiceRegistry) *app.Dispatcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		d, err := app.NewDispatcher(notifyDI.GetSenders(sr), notifyDI.GetDedup(sr), cfg.Notify.Timeout, log)
		if err != nil {
			panic("failed to create dispatcher: " + err.Error())
		}
		return d
	})

	return nil
}

// Startup loads persisted dedup records and starts the periodic flush.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	m.services = mono.Services()

	dedup := notifyDI.GetDedup(m.services)
	if err := dedup.Load(ctx); err != nil {
		log.Warn(ctx, "starting with empty dedup cache", "error", err)
	}

	flushCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		dedup.Run(flushCtx)
	}()

	log.Info(ctx, "notify module started",
		"senders", notifyDI.GetDispatcher(m.services).Senders(),
		"dedup_backend", cfg.Dedup.Backend,
		"dedup_records", dedup.Len(),
		"cooldown", cfg.Dedup.Cooldown.String(),
	)
	return nil
}

// Close stops the flush loop, which saves once more, and closes the store.
func (m *Module) Close(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	m.wg.Wait()

	if c, ok := notifyDI.GetStore(m.services).(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// SendersFrom builds the enabled senders. Each gets its own instrumented
// client so metrics and spans carry the provider name.
func SendersFrom(cfg config.NotifyConfig) ([]app.Sender, error) {
	var senders []app.Sender

	if cfg.Telegram.Enabled {
		client, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("telegram"),
			httpclient.WithRequestTimeout(cfg.Timeout),
			httpclient.WithRedactedValues(cfg.Telegram.BotToken),
		)
		if err != nil {
			return nil, err
		}
		senders = append(senders, infra.NewTelegramSender(client, cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}

	if cfg.Discord.Enabled {
		client, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("discord"),
			httpclient.WithRequestTimeout(cfg.Timeout),
			httpclient.WithRedactedValues(cfg.Discord.WebhookURL),
		)
		if err != nil {
			return nil, err
		}
		senders = append(senders, infra.NewDiscordSender(client, cfg.Discord.WebhookURL))
	}

	return senders, nil
}
