// Package config defines the top-level configuration for matchoracle and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MATCHORACLE_* environment variables.
type Config struct {
	Odds     OddsConfig     `toml:"odds"`
	LLM      LLMConfig      `toml:"llm"`
	Search   SearchConfig   `toml:"search"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Output   OutputConfig   `toml:"output"`
	Schedule ScheduleConfig `toml:"schedule"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// OddsConfig holds the odds provider endpoint, credentials and request scope.
type OddsConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	// Sport is a single league key such as "soccer_epl", or "upcoming" for
	// every in-season sport.
	Sport      string   `toml:"sport"`
	Regions    string   `toml:"regions"`
	Markets    string   `toml:"markets"`
	OddsFormat string   `toml:"odds_format"`
	Timeout    duration `toml:"timeout"`
	// PreferredBookmakers is checked in order; the first one quoting an
	// event wins, otherwise the event's first bookmaker is used.
	PreferredBookmakers []string `toml:"preferred_bookmakers"`
	DrawLabel           string   `toml:"draw_label"`
}

// LLMConfig holds the OpenAI-compatible chat-completion endpoint.
type LLMConfig struct {
	BaseURL     string   `toml:"base_url"`
	APIKey      string   `toml:"api_key"`
	Model       string   `toml:"model"`
	Temperature float64  `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	Timeout     duration `toml:"timeout"`
}

// SearchConfig holds the keyless web-search provider used for match intel.
type SearchConfig struct {
	Enabled     bool     `toml:"enabled"`
	BaseURL     string   `toml:"base_url"`
	MaxResults  int      `toml:"max_results"`
	QuerySuffix string   `toml:"query_suffix"`
	UserAgent   string   `toml:"user_agent"`
	Timeout     duration `toml:"timeout"`
	CacheTTL    duration `toml:"cache_ttl"`
}

// PipelineConfig holds the per-run processing policy.
type PipelineConfig struct {
	// MaxMatches caps how many filtered matches are processed per run.
	MaxMatches int `toml:"max_matches"`
	// Leagues is the ordered whitelist of league title substrings.
	Leagues []string `toml:"leagues"`
	// PriorityLeagues, when set, are moved to the front before the cap.
	PriorityLeagues []string `toml:"priority_leagues"`
	SearchDelayMin  duration `toml:"search_delay_min"`
	SearchDelayMax  duration `toml:"search_delay_max"`
	MatchDelayMin   duration `toml:"match_delay_min"`
	MatchDelayMax   duration `toml:"match_delay_max"`
	// SearchRateLimit and LLMRateLimit bound requests per RateWindow when
	// Redis is enabled. Zero disables the distributed limit.
	SearchRateLimit int      `toml:"search_rate_limit"`
	LLMRateLimit    int      `toml:"llm_rate_limit"`
	RateWindow      duration `toml:"rate_window"`
}

// OutputConfig controls the mandatory JSON result file.
type OutputConfig struct {
	Path        string `toml:"path"`
	SourceLabel string `toml:"source_label"`
}

// ScheduleConfig configures the "schedule" mode.
type ScheduleConfig struct {
	Cron       string   `toml:"cron"`
	Timezone   string   `toml:"timezone"`
	RunOnStart bool     `toml:"run_on_start"`
	RunTimeout duration `toml:"run_timeout"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; it backs
// the intel cache, the distributed rate limit and the run lock.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockTTL    duration `toml:"lock_ttl"`
}

// PostgresConfig holds the optional prediction-history database.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the optional
// report archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	MaxLines          int      `toml:"max_lines"`
}

// ServerConfig configures the optional HTTP API served in schedule mode.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is requests per client per RateWindow; it needs Redis.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
	// TrustProxy takes the client address from proxy headers. Enable it only
	// behind a reverse proxy that overwrites them.
	TrustProxy bool `toml:"trust_proxy"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Odds: OddsConfig{
			BaseURL:    "https://api.the-odds-api.com/v4",
			Sport:      "soccer_epl",
			Regions:    "uk,eu",
			Markets:    "h2h",
			OddsFormat: "decimal",
			Timeout:    duration{20 * time.Second},
			PreferredBookmakers: []string{
				"betfair_ex_uk",
				"betfair_ex_eu",
				"pinnacle",
				"williamhill",
			},
			DrawLabel: "Draw",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.4,
			Timeout:     duration{60 * time.Second},
		},
		Search: SearchConfig{
			Enabled:     true,
			BaseURL:     "https://html.duckduckgo.com/html/",
			MaxResults:  3,
			QuerySuffix: "injury news team news preview",
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:     duration{15 * time.Second},
			CacheTTL:    duration{6 * time.Hour},
		},
		Pipeline: PipelineConfig{
			MaxMatches: 10,
			Leagues: []string{
				"EPL",
				"Premier League",
				"La Liga",
				"Serie A",
				"Bundesliga",
				"Ligue 1",
				"Champions League",
				"Europa League",
			},
			SearchDelayMin: duration{1500 * time.Millisecond},
			SearchDelayMax: duration{4 * time.Second},
			MatchDelayMin:  duration{2 * time.Second},
			MatchDelayMax:  duration{6 * time.Second},
			RateWindow:     duration{time.Minute},
		},
		Output: OutputConfig{
			Path:        "result.json",
			SourceLabel: "The Odds API",
		},
		Schedule: ScheduleConfig{
			Cron:       "0 6 * * *",
			Timezone:   "UTC",
			RunOnStart: true,
			RunTimeout: duration{45 * time.Minute},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   5,
			MaxRetries: 3,
			LockTTL:    duration{time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "matchoracle",
			Prefix:         "predictions",
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events:   []string{"run_completed", "run_failed"},
			MaxLines: 10,
		},
		Server: ServerConfig{
			Enabled:    false,
			Addr:       ":8080",
			RateLimit:  60,
			RateWindow: duration{time.Minute},
		},
		Mode:     "once",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"once":     true,
	"schedule": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// maxMatchesCeiling bounds the per-run cap so a run finishes well inside a
// scheduler's execution-time limit.
const maxMatchesCeiling = 30

// maxSearchResults keeps the intel block of a prompt short.
const maxSearchResults = 5

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found. API keys are deliberately
// not checked: a missing key surfaces as the provider's own auth error.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: once, schedule)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Odds
	if c.Odds.BaseURL == "" {
		errs = append(errs, "odds: base_url must not be empty")
	}
	if c.Odds.Sport == "" {
		errs = append(errs, "odds: sport must not be empty (use \"upcoming\" for all sports)")
	}
	if c.Odds.DrawLabel == "" {
		errs = append(errs, "odds: draw_label must not be empty")
	}
	if c.Odds.Timeout.Duration <= 0 {
		errs = append(errs, "odds: timeout must be > 0")
	}

	// LLM
	if c.LLM.BaseURL == "" {
		errs = append(errs, "llm: base_url must not be empty")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm: model must not be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errs = append(errs, fmt.Sprintf("llm: temperature must be within 0-1, got %.2f", c.LLM.Temperature))
	}
	if c.LLM.Timeout.Duration <= 0 {
		errs = append(errs, "llm: timeout must be > 0")
	}

	// Search
	if c.Search.Enabled {
		if c.Search.BaseURL == "" {
			errs = append(errs, "search: base_url must not be empty when enabled")
		}
		if c.Search.MaxResults < 1 || c.Search.MaxResults > maxSearchResults {
			errs = append(errs, fmt.Sprintf("search: max_results must be 1-%d, got %d", maxSearchResults, c.Search.MaxResults))
		}
	}

	// Pipeline
	if c.Pipeline.MaxMatches < 1 || c.Pipeline.MaxMatches > maxMatchesCeiling {
		errs = append(errs, fmt.Sprintf("pipeline: max_matches must be 1-%d, got %d", maxMatchesCeiling, c.Pipeline.MaxMatches))
	}
	if len(c.Pipeline.Leagues) == 0 {
		errs = append(errs, "pipeline: leagues whitelist must not be empty")
	}
	if c.Pipeline.SearchDelayMin.Duration < 0 || c.Pipeline.SearchDelayMax.Duration < c.Pipeline.SearchDelayMin.Duration {
		errs = append(errs, "pipeline: search delay window must satisfy 0 <= min <= max")
	}
	if c.Pipeline.MatchDelayMin.Duration < 0 || c.Pipeline.MatchDelayMax.Duration < c.Pipeline.MatchDelayMin.Duration {
		errs = append(errs, "pipeline: match delay window must satisfy 0 <= min <= max")
	}
	if (c.Pipeline.SearchRateLimit > 0 || c.Pipeline.LLMRateLimit > 0) && c.Pipeline.RateWindow.Duration <= 0 {
		errs = append(errs, "pipeline: rate_window must be > 0 when a rate limit is set")
	}

	// Output
	if c.Output.Path == "" {
		errs = append(errs, "output: path must not be empty")
	}

	// Schedule
	if strings.ToLower(c.Mode) == "schedule" && c.Schedule.Cron == "" {
		errs = append(errs, "schedule: cron must not be empty in schedule mode")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Addr == "" {
			errs = append(errs, "server: addr must not be empty")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
