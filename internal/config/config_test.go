package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fd1az/dex-spread-monitor/internal/config"
)

const validYAML = `
network:
  chain_id: 137
  rpc_candidates: ["https://a.example", "https://b.example"]
tokens:
  - { symbol: USDC, address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", decimals: 6, class: stable }
  - { symbol: WETH, address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", decimals: 18, class: volatile, tracked: true }
venues:
  - { id: univ3, protocol: concentrated_liquidity, factory: "0x1F98431c8aD98523631AE4a59f267346ea31F984", fee_tiers: [3000, 500], enabled: true }
  - { id: quick, protocol: constant_product, factory: "0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32", fee_bps: 30, enabled: true }
routing:
  bridges: [USDC]
  settlement: USDC
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Monitor.PollInterval != 30*time.Second {
		t.Errorf("poll interval = %s, want 30s", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.TopN != 3 {
		t.Errorf("top_n = %d, want 3", cfg.Monitor.TopN)
	}
	if cfg.Network.ProbeConcurrency != 8 || cfg.Network.TargetPoolSize != 5 {
		t.Errorf("probe defaults = %d/%d, want 8/5", cfg.Network.ProbeConcurrency, cfg.Network.TargetPoolSize)
	}
	if cfg.Dedup.Cooldown != 5*time.Minute {
		t.Errorf("cooldown = %s, want 5m", cfg.Dedup.Cooldown)
	}
	if cfg.Model.MinConfidence != 0.4 {
		t.Errorf("min confidence = %v, want 0.4", cfg.Model.MinConfidence)
	}
	if got := cfg.Model.ActiveLiquidity["500"]; got != 0.75 {
		t.Errorf("active liquidity for 500 = %v, want 0.75", got)
	}
	if len(cfg.TrackedTokens()) != 1 || cfg.TrackedTokens()[0].Symbol != "WETH" {
		t.Errorf("tracked tokens = %+v", cfg.TrackedTokens())
	}
	if len(cfg.EnabledVenues()) != 2 {
		t.Errorf("enabled venues = %d, want 2", len(cfg.EnabledVenues()))
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ARB_MIN_SPREAD_BPS", "42")

	cfg, err := config.Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.MinSpreadBps != 42 {
		t.Errorf("min spread = %v, want 42", cfg.Monitor.MinSpreadBps)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "no tracked tokens",
			mutate:  func(s string) string { return strings.Replace(s, ", tracked: true", "", 1) },
			wantErr: "no tracked tokens",
		},
		{
			name:    "single venue",
			mutate:  func(s string) string { return strings.Replace(s, "fee_bps: 30, enabled: true", "fee_bps: 30, enabled: false", 1) },
			wantErr: "at least two enabled venues",
		},
		{
			name:    "unknown bridge",
			mutate:  func(s string) string { return strings.Replace(s, "bridges: [USDC]", "bridges: [USDC, FOO]", 1) },
			wantErr: "unknown token FOO",
		},
		{
			name:    "bad class",
			mutate:  func(s string) string { return strings.Replace(s, "class: volatile", "class: meme", 1) },
			wantErr: "invalid class",
		},
		{
			name:    "constant product without fee",
			mutate:  func(s string) string { return strings.Replace(s, "fee_bps: 30, ", "", 1) },
			wantErr: "fee_bps is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.mutate(validYAML)))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
