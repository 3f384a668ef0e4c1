package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MATCHORACLE_* environment variable overrides,
// and returns the final Config. A missing file is not an error: defaults plus
// environment are enough for a scheduled job. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known environment variables and overwrites the
// corresponding Config fields when a variable is set (i.e. not empty).
// Credentials are expected to arrive this way rather than through the file.
func applyEnvOverrides(cfg *Config) {
	// ── Odds ──
	setStr(&cfg.Odds.APIKey, "ODDS_KEY") // compatibility alias
	setStr(&cfg.Odds.APIKey, "MATCHORACLE_ODDS_API_KEY")
	setStr(&cfg.Odds.BaseURL, "MATCHORACLE_ODDS_BASE_URL")
	setStr(&cfg.Odds.Sport, "MATCHORACLE_ODDS_SPORT")
	setStr(&cfg.Odds.Regions, "MATCHORACLE_ODDS_REGIONS")
	setDuration(&cfg.Odds.Timeout, "MATCHORACLE_ODDS_TIMEOUT")
	setStringSlice(&cfg.Odds.PreferredBookmakers, "MATCHORACLE_ODDS_PREFERRED_BOOKMAKERS")

	// ── LLM ──
	setStr(&cfg.LLM.APIKey, "LLM_API_KEY") // compatibility alias
	setStr(&cfg.LLM.APIKey, "MATCHORACLE_LLM_API_KEY")
	setStr(&cfg.LLM.BaseURL, "MATCHORACLE_LLM_BASE_URL")
	setStr(&cfg.LLM.Model, "MATCHORACLE_LLM_MODEL")
	setFloat64(&cfg.LLM.Temperature, "MATCHORACLE_LLM_TEMPERATURE")
	setInt(&cfg.LLM.MaxTokens, "MATCHORACLE_LLM_MAX_TOKENS")
	setDuration(&cfg.LLM.Timeout, "MATCHORACLE_LLM_TIMEOUT")

	// ── Search ──
	setBool(&cfg.Search.Enabled, "MATCHORACLE_SEARCH_ENABLED")
	setStr(&cfg.Search.BaseURL, "MATCHORACLE_SEARCH_BASE_URL")
	setInt(&cfg.Search.MaxResults, "MATCHORACLE_SEARCH_MAX_RESULTS")
	setDuration(&cfg.Search.CacheTTL, "MATCHORACLE_SEARCH_CACHE_TTL")

	// ── Pipeline ──
	setInt(&cfg.Pipeline.MaxMatches, "MATCHORACLE_PIPELINE_MAX_MATCHES")
	setStringSlice(&cfg.Pipeline.Leagues, "MATCHORACLE_PIPELINE_LEAGUES")
	setStringSlice(&cfg.Pipeline.PriorityLeagues, "MATCHORACLE_PIPELINE_PRIORITY_LEAGUES")
	setDuration(&cfg.Pipeline.SearchDelayMin, "MATCHORACLE_PIPELINE_SEARCH_DELAY_MIN")
	setDuration(&cfg.Pipeline.SearchDelayMax, "MATCHORACLE_PIPELINE_SEARCH_DELAY_MAX")
	setDuration(&cfg.Pipeline.MatchDelayMin, "MATCHORACLE_PIPELINE_MATCH_DELAY_MIN")
	setDuration(&cfg.Pipeline.MatchDelayMax, "MATCHORACLE_PIPELINE_MATCH_DELAY_MAX")
	setInt(&cfg.Pipeline.SearchRateLimit, "MATCHORACLE_PIPELINE_SEARCH_RATE_LIMIT")
	setInt(&cfg.Pipeline.LLMRateLimit, "MATCHORACLE_PIPELINE_LLM_RATE_LIMIT")

	// ── Output ──
	setStr(&cfg.Output.Path, "MATCHORACLE_OUTPUT_PATH")

	// ── Schedule ──
	setStr(&cfg.Schedule.Cron, "MATCHORACLE_SCHEDULE_CRON")
	setStr(&cfg.Schedule.Timezone, "MATCHORACLE_SCHEDULE_TIMEZONE")
	setBool(&cfg.Schedule.RunOnStart, "MATCHORACLE_SCHEDULE_RUN_ON_START")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MATCHORACLE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MATCHORACLE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MATCHORACLE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MATCHORACLE_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "MATCHORACLE_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MATCHORACLE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MATCHORACLE_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "MATCHORACLE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MATCHORACLE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MATCHORACLE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MATCHORACLE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MATCHORACLE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MATCHORACLE_POSTGRES_SSL_MODE")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MATCHORACLE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MATCHORACLE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MATCHORACLE_S3_REGION")
	setStr(&cfg.S3.Bucket, "MATCHORACLE_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "MATCHORACLE_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "MATCHORACLE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MATCHORACLE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MATCHORACLE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MATCHORACLE_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MATCHORACLE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MATCHORACLE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MATCHORACLE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MATCHORACLE_NOTIFY_EVENTS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MATCHORACLE_SERVER_ENABLED")
	setStr(&cfg.Server.Addr, "MATCHORACLE_SERVER_ADDR")
	setStr(&cfg.Server.APIKey, "MATCHORACLE_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "MATCHORACLE_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "MATCHORACLE_SERVER_RATE_LIMIT")
	setBool(&cfg.Server.TrustProxy, "MATCHORACLE_SERVER_TRUST_PROXY")

	// ── Top-level ──
	setStr(&cfg.Mode, "MATCHORACLE_MODE")
	setStr(&cfg.LogLevel, "MATCHORACLE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
