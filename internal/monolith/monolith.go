// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/fd1az/dex-spread-monitor/internal/asset"
	"github.com/fd1az/dex-spread-monitor/internal/config"
	"github.com/fd1az/dex-spread-monitor/internal/di"
	"github.com/fd1az/dex-spread-monitor/internal/health"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App is the runnable container returned by New.
type App interface {
	Monolith
	RegisterModules(modules ...Module) error
	Modules() []Module
	StartModules(ctx context.Context, modules ...Module) error
	Close(ctx context.Context) error
}

// Closer is implemented by modules holding resources released at shutdown.
type Closer interface {
	Close(context.Context) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	assetRegistry *asset.Registry
	health        *health.Server
	container     di.Container
	modules       []Module
	started       []Module
}

// New creates a new Monolith instance. The health server may be nil.
func New(cfg *config.Config, log logger.LoggerInterface, hs *health.Server) (App, error) {
	registry, err := RegistryFrom(cfg)
	if err != nil {
		return nil, err
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("assetRegistry", registry)

	return &app{
		config:        cfg,
		logger:        log,
		assetRegistry: registry,
		health:        hs,
		container:     container,
	}, nil
}

// RegistryFrom builds the token registry of the configured network.
func RegistryFrom(cfg *config.Config) (*asset.Registry, error) {
	registry := asset.NewRegistry(cfg.Network.ChainID)
	for _, t := range cfg.Tokens {
		a := asset.NewAsset(cfg.Network.ChainID, t.AddressHex(), t.Symbol, t.Decimals, asset.Class(t.Class))
		if err := registry.Register(a); err != nil {
			return nil, fmt.Errorf("register token %s: %w", t.Symbol, err)
		}
	}
	return registry, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
		a.modules = append(a.modules, m)
	}
	return nil
}

// Modules returns the registered modules in registration order.
func (a *app) Modules() []Module {
	return a.modules
}

// StartModules starts all provided modules in order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
		a.started = append(a.started, m)
	}
	return nil
}

// Close releases module resources in reverse start order.
func (a *app) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.started) - 1; i >= 0; i-- {
		c, ok := a.started[i].(Closer)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			a.logger.Error(ctx, "module close failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.started = nil
	return firstErr
}
