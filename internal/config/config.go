package config

import (
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the guard engine
type Config struct {
	RPC     RPCConfig
	Risk    RiskConfig
	Oracle  OracleConfig
	MEV     MEVConfig
	Loans   LoanConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

// RPCConfig holds read-endpoint configuration
type RPCConfig struct {
	URLs            []string
	ReadTimeout     time.Duration
	GasTimeout      time.Duration
	EstimateTimeout time.Duration
}

// RiskConfig holds the guard thresholds
type RiskConfig struct {
	MaxSlippageBps  int64
	MinProfitUSD    float64
	MinProfitBps    int64
	CooldownWindow  time.Duration
	HighGasGwei     int64
	GasLimitCeiling uint64
	LockFraction    float64
}

// OracleConfig holds price-feed settings
type OracleConfig struct {
	Staleness time.Duration
}

// MEVConfig holds front-running risk store settings
type MEVConfig struct {
	Backend   string // "file" or "redis"
	QueueFile string
	RedisAddr string
	Lookback  time.Duration
}

// LoanConfig holds flash-loan and fallback-token settings
type LoanConfig struct {
	AaveEnabled        bool
	BalancerEnabled    bool
	FallbackTokens     []string
	FallbackMinBalance *big.Int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// MetricsConfig holds the metrics server address
type MetricsConfig struct {
	Addr string
}

// Load reads configuration from environment and config file
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("rpc.urls", []string{"https://eth-mainnet.g.alchemy.com/v2/YOUR_API_KEY"})
	v.SetDefault("rpc.read_timeout_ms", 4000)
	v.SetDefault("rpc.gas_timeout_ms", 3000)
	v.SetDefault("rpc.estimate_timeout_ms", 5000)

	v.SetDefault("risk.max_slippage_bps", 100)
	v.SetDefault("risk.min_profit_usd", 5.0)
	v.SetDefault("risk.min_profit_bps", 10)
	v.SetDefault("risk.cooldown_ms", 30000)
	v.SetDefault("risk.high_gas_gwei", 150)
	v.SetDefault("risk.gas_limit_ceiling", 1200000)
	v.SetDefault("risk.lock_fraction", 0.75)

	v.SetDefault("oracle.staleness_sec", 3600)

	v.SetDefault("mev.backend", "file")
	v.SetDefault("mev.queue_file", "mev-queue.json")
	v.SetDefault("mev.redis_addr", "localhost:6379")
	v.SetDefault("mev.lookback_ms", 60000)

	v.SetDefault("loans.aave_enabled", false)
	v.SetDefault("loans.balancer_enabled", false)
	v.SetDefault("loans.fallback_tokens", "")
	v.SetDefault("loans.fallback_min_balance_wei", "0")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.addr", "")

	// Environment variable support
	v.SetEnvPrefix("GUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.trade-guard")

	// Read config file (optional)
	_ = v.ReadInConfig()

	minBalance, ok := new(big.Int).SetString(v.GetString("loans.fallback_min_balance_wei"), 10)
	if !ok {
		minBalance = big.NewInt(0)
	}

	cfg := &Config{
		RPC: RPCConfig{
			URLs:            v.GetStringSlice("rpc.urls"),
			ReadTimeout:     time.Duration(v.GetInt64("rpc.read_timeout_ms")) * time.Millisecond,
			GasTimeout:      time.Duration(v.GetInt64("rpc.gas_timeout_ms")) * time.Millisecond,
			EstimateTimeout: time.Duration(v.GetInt64("rpc.estimate_timeout_ms")) * time.Millisecond,
		},
		Risk: RiskConfig{
			MaxSlippageBps:  v.GetInt64("risk.max_slippage_bps"),
			MinProfitUSD:    v.GetFloat64("risk.min_profit_usd"),
			MinProfitBps:    v.GetInt64("risk.min_profit_bps"),
			CooldownWindow:  time.Duration(v.GetInt64("risk.cooldown_ms")) * time.Millisecond,
			HighGasGwei:     v.GetInt64("risk.high_gas_gwei"),
			GasLimitCeiling: v.GetUint64("risk.gas_limit_ceiling"),
			LockFraction:    v.GetFloat64("risk.lock_fraction"),
		},
		Oracle: OracleConfig{
			Staleness: time.Duration(v.GetInt64("oracle.staleness_sec")) * time.Second,
		},
		MEV: MEVConfig{
			Backend:   v.GetString("mev.backend"),
			QueueFile: v.GetString("mev.queue_file"),
			RedisAddr: v.GetString("mev.redis_addr"),
			Lookback:  time.Duration(v.GetInt64("mev.lookback_ms")) * time.Millisecond,
		},
		Loans: LoanConfig{
			AaveEnabled:        v.GetBool("loans.aave_enabled"),
			BalancerEnabled:    v.GetBool("loans.balancer_enabled"),
			FallbackTokens:     splitList(v.GetString("loans.fallback_tokens")),
			FallbackMinBalance: minBalance,
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
	}

	return cfg, nil
}

// splitList parses a comma-separated allowlist, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
