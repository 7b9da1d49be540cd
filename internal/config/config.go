// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Protocol families supported by the quoter.
const (
	ProtocolConstantProduct       = "constant_product"
	ProtocolConcentratedLiquidity = "concentrated_liquidity"
)

// Token classes.
const (
	TokenClassStable        = "stable"
	TokenClassWrappedNative = "wrapped_native"
	TokenClassVolatile      = "volatile"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Network   NetworkConfig   `mapstructure:"network"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Model     ModelConfig     `mapstructure:"model"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
}

// NetworkConfig describes the monitored chain and its RPC candidates.
type NetworkConfig struct {
	Name          string        `mapstructure:"name"`
	ChainID       uint64        `mapstructure:"chain_id"`
	NativeSymbol  string        `mapstructure:"native_symbol"`
	BlockTime     time.Duration `mapstructure:"block_time"`
	Confirmations int           `mapstructure:"confirmations"`

	RPCCandidates    []string      `mapstructure:"rpc_candidates"`
	ProbeConcurrency int           `mapstructure:"probe_concurrency"`
	TargetPoolSize   int           `mapstructure:"target_pool_size"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`

	RetryInitialBackoff time.Duration `mapstructure:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `mapstructure:"retry_max_backoff"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	RequestBurst        int           `mapstructure:"request_burst"`

	MaxGasPriceGwei float64       `mapstructure:"max_gas_price_gwei"`
	GasCacheTTL     time.Duration `mapstructure:"gas_cache_ttl"`
}

// TokenConfig describes one ERC20 token.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	Class    string `mapstructure:"class"`
	Tracked  bool   `mapstructure:"tracked"`

	// Optional per-token overrides of the class defaults. Zero keeps the default.
	Reliability float64 `mapstructure:"reliability"`
	Volatility  float64 `mapstructure:"volatility"`
}

// AddressHex returns the token address as common.Address.
func (t TokenConfig) AddressHex() common.Address {
	return common.HexToAddress(t.Address)
}

// VenueConfig describes one DEX deployment.
type VenueConfig struct {
	ID       string   `mapstructure:"id"`
	Name     string   `mapstructure:"name"`
	Protocol string   `mapstructure:"protocol"`
	Factory  string   `mapstructure:"factory"`
	Quoter   string   `mapstructure:"quoter"` // concentrated-liquidity QuoterV2, optional
	Router   string   `mapstructure:"router"` // constant-product router, optional
	FeeTiers []uint32 `mapstructure:"fee_tiers"`
	FeeBps   uint32   `mapstructure:"fee_bps"` // constant-product swap fee
	Enabled  bool     `mapstructure:"enabled"`
}

// RoutingConfig lists bridge tokens and the settlement asset.
type RoutingConfig struct {
	Bridges        []string      `mapstructure:"bridges"`    // token symbols, priority order
	Settlement     string        `mapstructure:"settlement"` // stable symbol for two-hop routes
	ReferenceVenue string        `mapstructure:"reference_venue"`
	ReferenceTTL   time.Duration `mapstructure:"reference_ttl"`
}

// MonitorConfig holds the detection loop parameters.
type MonitorConfig struct {
	NotionalUSD        float64       `mapstructure:"notional_usd"`
	MinSpreadBps       float64       `mapstructure:"min_spread_bps"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	MinLiquidityUSD    float64       `mapstructure:"min_liquidity_usd"`
	TopN               int           `mapstructure:"top_n"`
	VenueConcurrency   int           `mapstructure:"venue_concurrency"`
	BatchPause         time.Duration `mapstructure:"batch_pause"`
	RotateBelowRate    float64       `mapstructure:"rotate_below_rate"`
	QuoteCacheTTL      time.Duration `mapstructure:"quote_cache_ttl"`
	ExhaustedPause     time.Duration `mapstructure:"exhausted_pause"`
	ResetCountersEvery int           `mapstructure:"reset_counters_every"`
}

// ModelConfig holds the tunable heuristic constants of the quoter and the
// cost and timing model.
type ModelConfig struct {
	// Timing
	GasEstimationOverhead time.Duration `mapstructure:"gas_estimation_overhead"`
	NetworkPropagation    time.Duration `mapstructure:"network_propagation"`
	RPCRoundTrip          time.Duration `mapstructure:"rpc_round_trip"`
	VenueProcessing       time.Duration `mapstructure:"venue_processing"`
	MultiHopTimeFactor    float64       `mapstructure:"multi_hop_time_factor"`
	CongestionTimeFactor  float64       `mapstructure:"congestion_time_factor"`
	CongestedHoursUTC     []int         `mapstructure:"congested_hours_utc"`

	// Costs
	GasUnitsDirect       uint64  `mapstructure:"gas_units_direct"`
	GasUnitsMultiHop     uint64  `mapstructure:"gas_units_multi_hop"`
	FallbackGasPriceGwei float64 `mapstructure:"fallback_gas_price_gwei"`
	FallbackNativeUSD    float64 `mapstructure:"fallback_native_usd"`
	AncillaryCostUSD     float64 `mapstructure:"ancillary_cost_usd"`

	// Viability
	MinConfidence    float64 `mapstructure:"min_confidence"`
	MinProfitUSD     float64 `mapstructure:"min_profit_usd"`
	MinROIPercent    float64 `mapstructure:"min_roi_percent"`
	ExecuteProfitUSD float64 `mapstructure:"execute_profit_usd"`
	ImmediateUSD     float64 `mapstructure:"immediate_profit_usd"`

	// Quoter
	StableLiquidityUSD float64            `mapstructure:"stable_liquidity_usd"`
	MultiHopEfficiency float64            `mapstructure:"multi_hop_efficiency"`
	ActiveLiquidity    map[string]float64 `mapstructure:"active_liquidity"` // fee tier -> fraction
	CLLiquidityScale   float64            `mapstructure:"cl_liquidity_scale"`
	MaxSlippage        float64            `mapstructure:"max_slippage"`
}

// DedupConfig holds notification dedup settings.
type DedupConfig struct {
	Backend       string        `mapstructure:"backend"` // file | redis
	Path          string        `mapstructure:"path"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	Retention     time.Duration `mapstructure:"retention"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// NotifyConfig holds alert delivery settings.
type NotifyConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	BaseURL  string `mapstructure:"base_url"`
}

// DiscordConfig holds Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // zipkin | otlp-grpc | otlp-http | console | none
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.log_file", "ARB_LOG_FILE")

	// Network
	v.BindEnv("network.chain_id", "ARB_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("network.rpc_candidates", "ARB_RPC_CANDIDATES", "RPC_CANDIDATES")

	// Monitor
	v.BindEnv("monitor.notional_usd", "ARB_NOTIONAL_USD")
	v.BindEnv("monitor.min_spread_bps", "ARB_MIN_SPREAD_BPS")
	v.BindEnv("monitor.poll_interval", "ARB_POLL_INTERVAL")

	// Dedup
	v.BindEnv("dedup.backend", "ARB_DEDUP_BACKEND")
	v.BindEnv("dedup.path", "ARB_DEDUP_PATH")
	v.BindEnv("dedup.redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("dedup.redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Notify
	v.BindEnv("notify.telegram.enabled", "ARB_TELEGRAM_ENABLED")
	v.BindEnv("notify.telegram.bot_token", "ARB_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notify.telegram.chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	v.BindEnv("notify.discord.enabled", "ARB_DISCORD_ENABLED")
	v.BindEnv("notify.discord.webhook_url", "ARB_DISCORD_WEBHOOK_URL", "DISCORD_WEBHOOK_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dex-spread-monitor")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Network defaults (Polygon PoS)
	v.SetDefault("network.name", "polygon")
	v.SetDefault("network.chain_id", 137)
	v.SetDefault("network.native_symbol", "POL")
	v.SetDefault("network.block_time", "2s")
	v.SetDefault("network.confirmations", 2)
	v.SetDefault("network.probe_concurrency", 8)
	v.SetDefault("network.target_pool_size", 5)
	v.SetDefault("network.probe_timeout", "5s")
	v.SetDefault("network.call_timeout", "10s")
	v.SetDefault("network.retry_initial_backoff", "200ms")
	v.SetDefault("network.retry_max_backoff", "2s")
	v.SetDefault("network.requests_per_second", 25)
	v.SetDefault("network.request_burst", 5)
	v.SetDefault("network.max_gas_price_gwei", 2000)
	v.SetDefault("network.gas_cache_ttl", "6s")

	// Routing defaults
	v.SetDefault("routing.bridges", []string{"USDC", "USDT", "DAI", "WPOL", "WETH"})
	v.SetDefault("routing.settlement", "USDC")
	v.SetDefault("routing.reference_ttl", "30s")

	// Monitor defaults
	v.SetDefault("monitor.notional_usd", 1000)
	v.SetDefault("monitor.min_spread_bps", 15)
	v.SetDefault("monitor.poll_interval", "30s")
	v.SetDefault("monitor.min_liquidity_usd", 1000)
	v.SetDefault("monitor.top_n", 3)
	v.SetDefault("monitor.venue_concurrency", 2)
	v.SetDefault("monitor.batch_pause", "250ms")
	v.SetDefault("monitor.rotate_below_rate", 0.3)
	v.SetDefault("monitor.quote_cache_ttl", "20s")
	v.SetDefault("monitor.exhausted_pause", "1m")
	v.SetDefault("monitor.reset_counters_every", 0)

	// Model defaults
	v.SetDefault("model.gas_estimation_overhead", "300ms")
	v.SetDefault("model.network_propagation", "500ms")
	v.SetDefault("model.rpc_round_trip", "300ms")
	v.SetDefault("model.venue_processing", "200ms")
	v.SetDefault("model.multi_hop_time_factor", 1.4)
	v.SetDefault("model.congestion_time_factor", 1.3)
	v.SetDefault("model.congested_hours_utc", []int{13, 14, 15, 16, 17})
	v.SetDefault("model.gas_units_direct", 150000)
	v.SetDefault("model.gas_units_multi_hop", 240000)
	v.SetDefault("model.fallback_gas_price_gwei", 50)
	v.SetDefault("model.fallback_native_usd", 0.5)
	v.SetDefault("model.ancillary_cost_usd", 0.25)
	v.SetDefault("model.min_confidence", 0.4)
	v.SetDefault("model.min_profit_usd", 3)
	v.SetDefault("model.min_roi_percent", 0.1)
	v.SetDefault("model.execute_profit_usd", 10)
	v.SetDefault("model.immediate_profit_usd", 25)
	v.SetDefault("model.stable_liquidity_usd", 10000000)
	v.SetDefault("model.multi_hop_efficiency", 0.7)
	v.SetDefault("model.active_liquidity", map[string]float64{
		"100":   0.85,
		"500":   0.75,
		"3000":  0.6,
		"10000": 0.45,
	})
	v.SetDefault("model.cl_liquidity_scale", 1.0)
	v.SetDefault("model.max_slippage", 0.12)

	// Dedup defaults
	v.SetDefault("dedup.backend", "file")
	v.SetDefault("dedup.path", "data/notifications.json")
	v.SetDefault("dedup.cooldown", "5m")
	v.SetDefault("dedup.retention", "24h")
	v.SetDefault("dedup.flush_interval", "1m")
	v.SetDefault("dedup.redis.addr", "localhost:6379")
	v.SetDefault("dedup.redis.key", "spread-monitor:notifications")

	// Notify defaults
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.telegram.base_url", "https://api.telegram.org")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dex-spread-monitor")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Network.ChainID == 0 {
		return fmt.Errorf("network.chain_id is required")
	}
	if len(c.Network.RPCCandidates) == 0 {
		return fmt.Errorf("network.rpc_candidates cannot be empty")
	}
	if len(c.TrackedTokens()) == 0 {
		return fmt.Errorf("no tracked tokens configured")
	}

	symbols := make(map[string]bool, len(c.Tokens))
	for _, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token with empty symbol")
		}
		if symbols[t.Symbol] {
			return fmt.Errorf("duplicate token symbol %s", t.Symbol)
		}
		symbols[t.Symbol] = true

		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid address for token %s: %s", t.Symbol, t.Address)
		}
		switch t.Class {
		case TokenClassStable, TokenClassWrappedNative, TokenClassVolatile:
		default:
			return fmt.Errorf("invalid class for token %s: %q", t.Symbol, t.Class)
		}
	}

	enabled := 0
	for _, v := range c.Venues {
		if !v.Enabled {
			continue
		}
		enabled++

		switch v.Protocol {
		case ProtocolConstantProduct:
			if v.FeeBps == 0 {
				return fmt.Errorf("venue %s: fee_bps is required for constant_product", v.ID)
			}
		case ProtocolConcentratedLiquidity:
			if len(v.FeeTiers) == 0 {
				return fmt.Errorf("venue %s: fee_tiers is required for concentrated_liquidity", v.ID)
			}
		default:
			return fmt.Errorf("venue %s: unknown protocol %q", v.ID, v.Protocol)
		}
		if !common.IsHexAddress(v.Factory) {
			return fmt.Errorf("venue %s: invalid factory address %s", v.ID, v.Factory)
		}
	}
	if enabled < 2 {
		return fmt.Errorf("at least two enabled venues are required, got %d", enabled)
	}

	for _, b := range c.Routing.Bridges {
		if !symbols[b] {
			return fmt.Errorf("routing.bridges references unknown token %s", b)
		}
	}
	if !symbols[c.Routing.Settlement] {
		return fmt.Errorf("routing.settlement references unknown token %s", c.Routing.Settlement)
	}

	if c.Monitor.NotionalUSD <= 0 {
		return fmt.Errorf("monitor.notional_usd must be positive")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive")
	}
	if c.Dedup.Backend != "file" && c.Dedup.Backend != "redis" {
		return fmt.Errorf("dedup.backend must be file or redis, got %q", c.Dedup.Backend)
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id")
	}
	if c.Notify.Discord.Enabled && c.Notify.Discord.WebhookURL == "" {
		return fmt.Errorf("notify.discord requires webhook_url")
	}
	return nil
}

// TrackedTokens returns the tokens polled every cycle.
func (c *Config) TrackedTokens() []TokenConfig {
	var out []TokenConfig
	for _, t := range c.Tokens {
		if t.Tracked {
			out = append(out, t)
		}
	}
	return out
}

// EnabledVenues returns the venues queried every cycle.
func (c *Config) EnabledVenues() []VenueConfig {
	var out []VenueConfig
	for _, v := range c.Venues {
		if v.Enabled {
			out = append(out, v)
		}
	}
	return out
}
