// Package config provides configuration loading for the scout.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/scoring"
	"memecoin-scout/internal/source"
)

// ConfigError is a malformed configuration value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Config represents the scout configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan"`
	Filters FiltersConfig `yaml:"filters"`
	Weights WeightsConfig `yaml:"weights"`
	Scoring ScoringConfig `yaml:"scoring"`
	Sources SourcesConfig `yaml:"sources"`
	Seen    SeenConfig    `yaml:"seen"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Warnings collected while loading, e.g. unset environment variables.
	Warnings []string `yaml:"-"`
}

// ScanConfig contains scheduler settings.
type ScanConfig struct {
	// Wait between completed scans
	Interval time.Duration `yaml:"interval"`

	// Wait after a failed scan
	FailureBackoff time.Duration `yaml:"failure_backoff"`

	// Candidates enriched in parallel
	EnrichConcurrency int `yaml:"enrich_concurrency"`

	// Per-scan enrichment deadline
	EnrichDeadline time.Duration `yaml:"enrich_deadline"`

	// Grace period for in-flight enrichment after the deadline
	HardTimeout time.Duration `yaml:"hard_timeout"`

	// Share of failed source calls that fails the scan
	MaxFailureRatio float64 `yaml:"max_failure_ratio"`
}

// FiltersConfig mirrors domain.FilterConfig. Optional bounds are pointers; omit them to
// disable the check.
type FiltersConfig struct {
	Chains []string `yaml:"chains"`

	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MaxLiquidityUSD float64 `yaml:"max_liquidity_usd"`
	MinPriceUSD     float64 `yaml:"min_price_usd"`
	MaxPriceUSD     float64 `yaml:"max_price_usd"`
	MinAgeMinutes   int64   `yaml:"min_age_minutes"`
	MaxAgeMinutes   int64   `yaml:"max_age_minutes"`

	MaxFDVUSD        *float64 `yaml:"max_fdv_usd"`
	MinHolders       *int64   `yaml:"min_holders"`
	MaxBuyTaxBps     *int64   `yaml:"max_buy_tax_bps"`
	MaxSellTaxBps    *int64   `yaml:"max_sell_tax_bps"`
	MaxTop1HolderPct *float64 `yaml:"max_top1_holder_pct"`
	MaxTop5HolderPct *float64 `yaml:"max_top5_holder_pct"`
	MinLPLockRatio   *float64 `yaml:"min_lp_lock_ratio"`
	MinTrades5m      *int64   `yaml:"min_dex_trades_5m"`
	MinVolumeUSD1h   *float64 `yaml:"min_volume_usd_1h"`

	RequireMintAuthorityRevoked     bool `yaml:"require_mint_authority_revoked"`
	RequireFreezeAuthorityRevoked   bool `yaml:"require_freeze_authority_revoked"`
	RequireOwnerRenouncedOrTimelock bool `yaml:"require_owner_renounced_or_timelock"`
	RejectBlacklistOrWhitelist      bool `yaml:"reject_blacklist_or_whitelist"`
	RejectHoneypot                  bool `yaml:"reject_honeypot"`
}

// WeightsConfig contains the composite score weights.
type WeightsConfig struct {
	Liquidity          float64 `yaml:"liquidity"`
	VolumeMomentum     float64 `yaml:"volume_momentum"`
	TradeActivity      float64 `yaml:"buyers_sellers_trend"`
	HolderDistribution float64 `yaml:"holder_distribution"`
	SocialTrend        float64 `yaml:"social_trend"`
	CodeRisk           float64 `yaml:"code_risk"`
}

// ScoringConfig contains scoring references that are not filter thresholds.
type ScoringConfig struct {
	// Twitter followers that earn a full social sub-score
	SocialReferenceFollowers float64        `yaml:"social_reference_followers"`
	Momentum                 MomentumConfig `yaml:"momentum"`
}

// MomentumConfig contains the momentum spike thresholds.
type MomentumConfig struct {
	MinVolumeUSD1h  float64 `yaml:"min_volume_usd_1h"`
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MinScore        float64 `yaml:"min_score"`
}

// SourcesConfig contains adapter settings.
type SourcesConfig struct {
	// Circuit breaker and backoff shared by every adapter
	Guard GuardConfig `yaml:"guard"`

	DexScreener DexScreenerConfig `yaml:"dexscreener"`
	Birdeye     APIConfig         `yaml:"birdeye"`
	GoPlus      APIConfig         `yaml:"goplus"`
	CoinGecko   APIConfig         `yaml:"coingecko"`
	SolanaRPC   SolanaRPCConfig   `yaml:"solana_rpc"`
	PumpFun     PumpFunConfig     `yaml:"pumpfun"`
}

// GuardConfig contains circuit breaker and rate-limit backoff settings.
type GuardConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	BackoffInitial   time.Duration `yaml:"backoff_initial"`
	BackoffMax       time.Duration `yaml:"backoff_max"`
}

// DexScreenerConfig contains DexScreener settings.
type DexScreenerConfig struct {
	Enabled           bool                `yaml:"enabled"`
	BaseURL           string              `yaml:"base_url"`
	RequestsPerMinute int                 `yaml:"requests_per_minute"`
	Timeout           time.Duration       `yaml:"timeout"`
	Queries           map[string][]string `yaml:"queries"`
}

// APIConfig contains settings of a keyed HTTP provider.
type APIConfig struct {
	Enabled           bool          `yaml:"enabled"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// SolanaRPCConfig contains Solana JSON-RPC settings.
type SolanaRPCConfig struct {
	Enabled           bool          `yaml:"enabled"`
	URL               string        `yaml:"url"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
}

// PumpFunConfig contains pump.fun stream discovery settings.
type PumpFunConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WSURL      string `yaml:"ws_url"`
	MaxPending int    `yaml:"max_pending"`
}

// SeenConfig contains Seen-Set settings.
type SeenConfig struct {
	// Backend: "memory", "postgres" or "redis"
	Backend string `yaml:"backend"`

	// Marks older than TTL expire; 0 keeps them forever
	TTL time.Duration `yaml:"ttl"`

	// Hash key for the redis backend
	RedisKey string `yaml:"redis_key"`
}

// StorageConfig contains database settings.
type StorageConfig struct {
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`

	// Backends that receive every published batch: "postgres", "clickhouse"
	Results []string `yaml:"results"`
}

// PostgresConfig contains Postgres settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// ClickHouseConfig contains ClickHouse settings.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig contains Redis settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `yaml:"level"`

	// Log format: console or json
	Format string `yaml:"format"`

	// Optional rotated log file
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig contains the metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	w := domain.DefaultScoreWeights()
	m := scoring.DefaultMomentum()
	return &Config{
		Scan: ScanConfig{
			Interval:          60 * time.Second,
			FailureBackoff:    30 * time.Second,
			EnrichConcurrency: 8,
			EnrichDeadline:    20 * time.Second,
			HardTimeout:       5 * time.Second,
			MaxFailureRatio:   0.5,
		},
		Filters: FiltersConfig{
			Chains:          []string{"solana"},
			MinLiquidityUSD: 3000,
			MaxLiquidityUSD: 750_000,
			MaxAgeMinutes:   720,
			RejectHoneypot:  true,
		},
		Weights: WeightsConfig{
			Liquidity:          w.Liquidity,
			VolumeMomentum:     w.VolumeMomentum,
			TradeActivity:      w.TradeActivity,
			HolderDistribution: w.HolderDistribution,
			SocialTrend:        w.SocialTrend,
			CodeRisk:           w.CodeRisk,
		},
		Scoring: ScoringConfig{
			SocialReferenceFollowers: 1000,
			Momentum: MomentumConfig{
				MinVolumeUSD1h:  m.MinVolumeUSD1h,
				MinLiquidityUSD: m.MinLiquidityUSD,
				MinScore:        m.MinScore,
			},
		},
		Sources: SourcesConfig{
			Guard: GuardConfig{
				FailureThreshold: 3,
				OpenTimeout:      1 * time.Minute,
				BackoffInitial:   5 * time.Second,
				BackoffMax:       5 * time.Minute,
			},
			DexScreener: DexScreenerConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
				Timeout:           10 * time.Second,
			},
			Birdeye: APIConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Timeout:           10 * time.Second,
			},
			GoPlus: APIConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Timeout:           10 * time.Second,
			},
			CoinGecko: APIConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Timeout:           10 * time.Second,
			},
			SolanaRPC: SolanaRPCConfig{
				Enabled:           true,
				URL:               "https://api.mainnet-beta.solana.com",
				RequestsPerMinute: 120,
				Timeout:           10 * time.Second,
				MaxRetries:        2,
			},
			PumpFun: PumpFunConfig{
				WSURL:      "wss://api.mainnet-beta.solana.com",
				MaxPending: 5000,
			},
		},
		Seen: SeenConfig{
			Backend:  "memory",
			RedisKey: "memecoin_scout:seen",
		},
		Storage: StorageConfig{
			Postgres: PostgresConfig{MaxConns: 10},
			Redis:    RedisConfig{Addr: "localhost:6379"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load reads a YAML file, substitutes ${VAR} placeholders from the environment and overlays
// the result on DefaultConfig. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	expanded, missing := ExpandEnv(data, os.LookupEnv)

	config := DefaultConfig()
	if err := yaml.Unmarshal(expanded, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	for _, name := range missing {
		config.Warnings = append(config.Warnings, fmt.Sprintf("environment variable %s is not set", name))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for errors. Every problem is reported; use errors.As
// to get the first *ConfigError.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...interface{}) {
		errs = append(errs, &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	s := c.Scan
	if s.Interval <= 0 {
		fail("scan.interval", "must be positive")
	}
	if s.FailureBackoff < 0 {
		fail("scan.failure_backoff", "must not be negative")
	}
	if s.EnrichConcurrency <= 0 {
		fail("scan.enrich_concurrency", "must be positive")
	}
	if s.EnrichDeadline <= 0 {
		fail("scan.enrich_deadline", "must be positive")
	}
	if s.HardTimeout < 0 {
		fail("scan.hard_timeout", "must not be negative")
	}
	if s.MaxFailureRatio <= 0 || s.MaxFailureRatio > 1 {
		fail("scan.max_failure_ratio", "must be in (0,1], got %v", s.MaxFailureRatio)
	}

	f := c.Filters
	if len(f.Chains) == 0 {
		fail("filters.chains", "at least one chain is required")
	}
	if f.MinLiquidityUSD < 0 {
		fail("filters.min_liquidity_usd", "must not be negative")
	}
	if f.MaxLiquidityUSD <= 0 || f.MaxLiquidityUSD < f.MinLiquidityUSD {
		fail("filters.max_liquidity_usd", "must be positive and at least min_liquidity_usd")
	}
	if f.MinPriceUSD < 0 || f.MaxPriceUSD < 0 {
		fail("filters.price", "bounds must not be negative")
	}
	if f.MaxPriceUSD > 0 && f.MaxPriceUSD < f.MinPriceUSD {
		fail("filters.max_price_usd", "must be at least min_price_usd")
	}
	if f.MinAgeMinutes < 0 {
		fail("filters.min_age_minutes", "must not be negative")
	}
	if f.MaxAgeMinutes <= 0 || f.MaxAgeMinutes < f.MinAgeMinutes {
		fail("filters.max_age_minutes", "must be positive and at least min_age_minutes")
	}
	if f.MaxFDVUSD != nil && *f.MaxFDVUSD < 0 {
		fail("filters.max_fdv_usd", "must not be negative")
	}
	for field, v := range map[string]*int64{
		"filters.min_holders":       f.MinHolders,
		"filters.max_buy_tax_bps":   f.MaxBuyTaxBps,
		"filters.max_sell_tax_bps":  f.MaxSellTaxBps,
		"filters.min_dex_trades_5m": f.MinTrades5m,
	} {
		if v != nil && *v < 0 {
			fail(field, "must not be negative")
		}
	}
	if !domain.ValidPct(f.MaxTop1HolderPct) {
		fail("filters.max_top1_holder_pct", "must be in [0,100]")
	}
	if !domain.ValidPct(f.MaxTop5HolderPct) {
		fail("filters.max_top5_holder_pct", "must be in [0,100]")
	}
	if !domain.ValidRatio(f.MinLPLockRatio) {
		fail("filters.min_lp_lock_ratio", "must be in [0,1]")
	}
	if f.MinVolumeUSD1h != nil && *f.MinVolumeUSD1h < 0 {
		fail("filters.min_volume_usd_1h", "must not be negative")
	}

	if !c.ScoreWeights().Valid() {
		fail("weights", "must be non-negative with a positive total")
	}
	if c.Scoring.SocialReferenceFollowers < 0 {
		fail("scoring.social_reference_followers", "must not be negative")
	}

	src := c.Sources
	if !src.DexScreener.Enabled && !src.PumpFun.Enabled {
		fail("sources", "no discovery source enabled")
	}
	if src.PumpFun.Enabled {
		if !src.DexScreener.Enabled {
			fail("sources.pumpfun", "requires dexscreener to resolve launches")
		}
		if src.PumpFun.WSURL == "" {
			fail("sources.pumpfun.ws_url", "is required")
		}
	}
	if src.SolanaRPC.Enabled && src.SolanaRPC.URL == "" {
		fail("sources.solana_rpc.url", "is required")
	}
	for field, rpm := range map[string]int{
		"sources.dexscreener.requests_per_minute": src.DexScreener.RequestsPerMinute,
		"sources.birdeye.requests_per_minute":     src.Birdeye.RequestsPerMinute,
		"sources.goplus.requests_per_minute":      src.GoPlus.RequestsPerMinute,
		"sources.coingecko.requests_per_minute":   src.CoinGecko.RequestsPerMinute,
		"sources.solana_rpc.requests_per_minute":  src.SolanaRPC.RequestsPerMinute,
	} {
		if rpm < 0 {
			fail(field, "must not be negative")
		}
	}

	switch c.Seen.Backend {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			fail("storage.postgres.dsn", "is required by seen.backend postgres")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			fail("storage.redis.addr", "is required by seen.backend redis")
		}
	default:
		fail("seen.backend", "unknown backend %q", c.Seen.Backend)
	}
	if c.Seen.TTL < 0 {
		fail("seen.ttl", "must not be negative")
	}

	for _, r := range c.Storage.Results {
		switch r {
		case "postgres":
			if c.Storage.Postgres.DSN == "" {
				fail("storage.postgres.dsn", "is required by storage.results")
			}
		case "clickhouse":
			if c.Storage.ClickHouse.DSN == "" {
				fail("storage.clickhouse.dsn", "is required by storage.results")
			}
		default:
			fail("storage.results", "unknown backend %q", r)
		}
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		fail("logging.level", "%v", err)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		fail("logging.format", "must be console or json, got %q", c.Logging.Format)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		fail("metrics.addr", "is required when metrics are enabled")
	}

	return errors.Join(errs...)
}

// FilterConfig converts the filters section.
func (c *Config) FilterConfig() domain.FilterConfig {
	f := c.Filters
	chains := make([]domain.Chain, 0, len(f.Chains))
	for _, name := range f.Chains {
		chains = append(chains, domain.ParseChain(name))
	}
	return domain.FilterConfig{
		Chains:                          chains,
		MinLiquidityUSD:                 f.MinLiquidityUSD,
		MaxLiquidityUSD:                 f.MaxLiquidityUSD,
		MinPriceUSD:                     f.MinPriceUSD,
		MaxPriceUSD:                     f.MaxPriceUSD,
		MinAgeMinutes:                   f.MinAgeMinutes,
		MaxAgeMinutes:                   f.MaxAgeMinutes,
		MaxFDVUSD:                       f.MaxFDVUSD,
		MinHolders:                      f.MinHolders,
		MaxBuyTaxBps:                    f.MaxBuyTaxBps,
		MaxSellTaxBps:                   f.MaxSellTaxBps,
		MaxTop1HolderPct:                f.MaxTop1HolderPct,
		MaxTop5HolderPct:                f.MaxTop5HolderPct,
		MinLPLockRatio:                  f.MinLPLockRatio,
		MinTrades5m:                     f.MinTrades5m,
		MinVolumeUSD1h:                  f.MinVolumeUSD1h,
		RequireMintAuthorityRevoked:     f.RequireMintAuthorityRevoked,
		RequireFreezeAuthorityRevoked:   f.RequireFreezeAuthorityRevoked,
		RequireOwnerRenouncedOrTimelock: f.RequireOwnerRenouncedOrTimelock,
		RejectBlacklistOrWhitelist:      f.RejectBlacklistOrWhitelist,
		RejectHoneypot:                  f.RejectHoneypot,
	}
}

// ScoreWeights converts the weights section.
func (c *Config) ScoreWeights() domain.ScoreWeights {
	w := c.Weights
	return domain.ScoreWeights{
		Liquidity:          w.Liquidity,
		VolumeMomentum:     w.VolumeMomentum,
		TradeActivity:      w.TradeActivity,
		HolderDistribution: w.HolderDistribution,
		SocialTrend:        w.SocialTrend,
		CodeRisk:           w.CodeRisk,
	}
}

// ScoringEngine builds the scoring engine from weights, filter references and momentum.
func (c *Config) ScoringEngine() *scoring.Engine {
	m := c.Scoring.Momentum
	return scoring.NewEngine(
		c.ScoreWeights(),
		scoring.ReferencesFromFilter(c.FilterConfig(), c.Scoring.SocialReferenceFollowers),
		scoring.Momentum{
			MinVolumeUSD1h:  m.MinVolumeUSD1h,
			MinLiquidityUSD: m.MinLiquidityUSD,
			MinScore:        m.MinScore,
		},
	)
}

// ChainQueries converts the DexScreener queries, or returns nil when none are configured.
func (d DexScreenerConfig) ChainQueries() map[domain.Chain][]string {
	if len(d.Queries) == 0 {
		return nil
	}
	out := make(map[domain.Chain][]string, len(d.Queries))
	for chain, qs := range d.Queries {
		out[domain.ParseChain(chain)] = qs
	}
	return out
}

// SourceGuard returns the guard settings for an adapter with the given quota.
func (g GuardConfig) SourceGuard(requestsPerMinute int) source.GuardConfig {
	return source.GuardConfig{
		RequestsPerMinute: requestsPerMinute,
		FailureThreshold:  g.FailureThreshold,
		OpenTimeout:       g.OpenTimeout,
		BackoffInitial:    g.BackoffInitial,
		BackoffMax:        g.BackoffMax,
	}
}

// Active reports whether the provider should be wired. A keyed provider without a key is
// inactive.
func (a APIConfig) Active(requireKey bool) bool {
	return a.Enabled && (!requireKey || a.APIKey != "")
}
