package monolith

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fd1az/dex-spread-monitor/internal/asset"
	"github.com/fd1az/dex-spread-monitor/internal/config"
	"github.com/fd1az/dex-spread-monitor/internal/di"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Network: config.NetworkConfig{ChainID: 137},
		Tokens: []config.TokenConfig{
			{Symbol: "USDC", Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6, Class: "stable"},
			{Symbol: "WETH", Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Decimals: 18, Class: "volatile", Tracked: true},
		},
	}
}

type fakeModule struct {
	name     string
	events   *[]string
	startErr error
	closeErr error
}

func (m *fakeModule) RegisterServices(di.Container) error {
	*m.events = append(*m.events, "register "+m.name)
	return nil
}

func (m *fakeModule) Startup(context.Context, Monolith) error {
	if m.startErr != nil {
		return m.startErr
	}
	*m.events = append(*m.events, "start "+m.name)
	return nil
}

func (m *fakeModule) Close(context.Context) error {
	*m.events = append(*m.events, "close "+m.name)
	return m.closeErr
}

func TestRegistryFrom(t *testing.T) {
	registry, err := RegistryFrom(testConfig())
	if err != nil {
		t.Fatalf("RegistryFrom: %v", err)
	}

	weth, ok := registry.BySymbol("WETH")
	if !ok {
		t.Fatal("WETH not registered")
	}
	if weth.Decimals() != 18 || weth.Class() != asset.ClassVolatile || weth.ChainID() != 137 {
		t.Errorf("WETH = %v decimals %d class %s", weth, weth.Decimals(), weth.Class())
	}

	usdc, _ := registry.BySymbol("USDC")
	if usdc == nil || !usdc.IsStable() {
		t.Error("USDC not registered as stable")
	}
}

func TestRegistryFrom_DuplicateToken(t *testing.T) {
	cfg := testConfig()
	cfg.Tokens = append(cfg.Tokens, cfg.Tokens[0])

	if _, err := RegistryFrom(cfg); err == nil {
		t.Fatal("expected error for duplicate token")
	}
}

func TestApp_LifecycleOrder(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	mono, err := New(testConfig(), log, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var events []string
	a := &fakeModule{name: "a", events: &events}
	b := &fakeModule{name: "b", events: &events, closeErr: errors.New("boom")}

	if err := mono.RegisterModules(a, b); err != nil {
		t.Fatalf("RegisterModules: %v", err)
	}
	if len(mono.Modules()) != 2 {
		t.Fatalf("Modules() = %d, want 2", len(mono.Modules()))
	}
	if err := mono.StartModules(context.Background(), mono.Modules()...); err != nil {
		t.Fatalf("StartModules: %v", err)
	}
	if err := mono.Close(context.Background()); err == nil {
		t.Error("expected close error to be returned")
	}

	want := []string{"register a", "register b", "start a", "start b", "close b", "close a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}

	if mono.Services().Get("config") == nil || mono.AssetRegistry() == nil {
		t.Error("global services not registered")
	}
}

func TestApp_CloseOnlyStartedModules(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	mono, err := New(testConfig(), log, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var events []string
	a := &fakeModule{name: "a", events: &events}
	b := &fakeModule{name: "b", events: &events, startErr: errors.New("rpc down")}

	if err := mono.StartModules(context.Background(), a, b); err == nil {
		t.Fatal("expected start error")
	}
	if err := mono.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if events[len(events)-1] != "close a" {
		t.Errorf("events = %v", events)
	}
	for _, e := range events {
		if e == "close b" {
			t.Error("module that failed to start was closed")
		}
	}
}
