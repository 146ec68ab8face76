// Package config holds all tunables for the service: server addresses,
// store DSNs, sync cadence, and the filter/scoring tables the pipeline
// runs against.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Filters  FilterConfig   `yaml:"filters"`
	Scoring  ScoringConfig  `yaml:"scoring"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisAddr     string `yaml:"redis_addr"` // empty = in-process cache
}

// SyncConfig controls the sync pipeline scheduler and its fan-out.
type SyncConfig struct {
	Interval       time.Duration `yaml:"interval"`
	CronSecret     string        `yaml:"cron_secret"`
	MaxTokens      int           `yaml:"max_tokens"`
	FetchWorkers   int           `yaml:"fetch_workers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RunOnStart     bool          `yaml:"run_on_start"`
}

// FilterConfig is the validation threshold table.
type FilterConfig struct {
	ChainID              string   `yaml:"chain_id"`
	AllowedDexes         []string `yaml:"allowed_dexes"`
	MinLiquidityUSD      float64  `yaml:"min_liquidity_usd"`
	SuspiciousKeywords   []string `yaml:"suspicious_keywords"`
	InfrastructureTokens []string `yaml:"infrastructure_tokens"`

	// MaxPairAge gates pairs by creation time when non-zero. Boosted
	// tokens bypass the gate.
	MaxPairAge time.Duration `yaml:"max_pair_age"`
}

// ScoringConfig is the weight table for the rank score.
type ScoringConfig struct {
	VolumeWeight         float64 `yaml:"volume_weight"`
	LiquidityWeight      float64 `yaml:"liquidity_weight"`
	TxnMultiplier        float64 `yaml:"txn_multiplier"`
	ActivityBonus        float64 `yaml:"activity_bonus"`
	PriceChangeMult      float64 `yaml:"price_change_multiplier"`
	BoostBonus           float64 `yaml:"boost_bonus"`
	SmallTokenLiquidity  float64 `yaml:"small_token_liquidity"`
	SmallTokenBonus      float64 `yaml:"small_token_bonus"`
	TrendingMinLiquidity float64 `yaml:"trending_min_liquidity"`
}

// Default returns the configuration the service ships with.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Sync: SyncConfig{
			Interval:       15 * time.Minute,
			MaxTokens:      50,
			FetchWorkers:   8,
			RequestTimeout: 10 * time.Second,
			RunOnStart:     true,
		},
		Filters: FilterConfig{
			ChainID: "solana",
			AllowedDexes: []string{
				"raydium", "orca", "meteora", "jupiter", "openbook",
				"serum", "aldrin", "cropper", "lifinity", "mercurial",
				"saber", "stepn", "whirlpool",
			},
			MinLiquidityUSD:    10,
			SuspiciousKeywords: []string{"trump", "scam", "test", "fake"},
			InfrastructureTokens: []string{
				"usdc", "usdt", "dai", "busd", "weth", "wbtc", "eth", "btc",
			},
			MaxPairAge: 0, // disabled
		},
		Scoring: ScoringConfig{
			VolumeWeight:         0.4,
			LiquidityWeight:      0.3,
			TxnMultiplier:        2.0,
			ActivityBonus:        500,
			PriceChangeMult:      10.0,
			BoostBonus:           1000,
			SmallTokenLiquidity:  50_000,
			SmallTokenBonus:      250,
			TrendingMinLiquidity: 1000,
		},
	}
}

// Load reads the YAML file at path (when non-empty) on top of the defaults,
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Database.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Database.ClickhouseDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Database.RedisAddr = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		c.Sync.CronSecret = v
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sync.Interval = d
		}
	}
	if v := os.Getenv("SYNC_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sync.MaxTokens = n
		}
	}
}

func (c *Config) validate() error {
	if c.Sync.MaxTokens <= 0 {
		return fmt.Errorf("sync.max_tokens must be positive, got %d", c.Sync.MaxTokens)
	}
	if c.Sync.FetchWorkers <= 0 {
		return fmt.Errorf("sync.fetch_workers must be positive, got %d", c.Sync.FetchWorkers)
	}
	if c.Filters.ChainID == "" {
		return fmt.Errorf("filters.chain_id must be set")
	}
	if len(c.Filters.AllowedDexes) == 0 {
		return fmt.Errorf("filters.allowed_dexes must not be empty")
	}
	return nil
}
