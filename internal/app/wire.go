package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/matchoracle/internal/blob/s3"
	"github.com/alanyoungcy/matchoracle/internal/cache/redis"
	"github.com/alanyoungcy/matchoracle/internal/config"
	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/notify"
	"github.com/alanyoungcy/matchoracle/internal/output"
	"github.com/alanyoungcy/matchoracle/internal/pipeline"
	"github.com/alanyoungcy/matchoracle/internal/platform/llm"
	"github.com/alanyoungcy/matchoracle/internal/platform/oddsapi"
	"github.com/alanyoungcy/matchoracle/internal/platform/search"
	"github.com/alanyoungcy/matchoracle/internal/server"
	"github.com/alanyoungcy/matchoracle/internal/server/handler"
	"github.com/alanyoungcy/matchoracle/internal/service"
	"github.com/alanyoungcy/matchoracle/internal/store/postgres"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	Runner *pipeline.Runner

	// Optional infrastructure; nil when disabled.
	IntelCache  domain.IntelCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	RunStore    domain.RunStore
	BlobWriter  domain.BlobWriter

	// Sinks in the order the runner calls them. The file sink is always
	// first.
	Sinks []domain.ReportSink

	Notifier *notify.Notifier
	Location *time.Location

	// Server is the optional HTTP API; nil unless enabled in schedule mode.
	// Trigger carries its manual run requests.
	Server  *server.Server
	Trigger chan struct{}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	deps.Location = loc

	// --- Redis (intel cache, distributed pacing, run lock) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.IntelCache = redis.NewIntelCache(redisClient, cfg.Search.CacheTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
	}

	// --- Report sinks: file first, then the optional ones ---
	fileSink := output.NewFileSink(cfg.Output.Path)
	deps.Sinks = append(deps.Sinks, fileSink)

	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		store := postgres.NewRunStore(pgClient.Pool())
		deps.RunStore = store
		deps.Sinks = append(deps.Sinks, store)
	}

	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		// The archive is best effort, so an unreachable bucket only warns.
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "wire: s3 bucket not reachable", slog.String("error", err.Error()))
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Sinks = append(deps.Sinks, s3blob.NewReportArchiver(deps.BlobWriter, cfg.S3.Prefix))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, cfg.Notify.MaxLines, logger)
	if deps.Notifier.Enabled() {
		deps.Sinks = append(deps.Sinks, deps.Notifier)
	}

	// --- Pacing ---
	var pacer domain.Pacer = pipeline.NewJitterPacer(map[domain.Stage]pipeline.Window{
		domain.StageSearch: {Min: cfg.Pipeline.SearchDelayMin.Duration, Max: cfg.Pipeline.SearchDelayMax.Duration},
		domain.StageMatch:  {Min: cfg.Pipeline.MatchDelayMin.Duration, Max: cfg.Pipeline.MatchDelayMax.Duration},
	})
	if deps.RateLimiter != nil {
		pacer = pipeline.NewRateLimitedPacer(pacer, deps.RateLimiter, map[domain.Stage]int{
			domain.StageSearch: cfg.Pipeline.SearchRateLimit,
			domain.StageLLM:    cfg.Pipeline.LLMRateLimit,
		}, cfg.Pipeline.RateWindow.Duration, logger.With(slog.String("component", "pacer")))
	}

	// --- Providers and services ---
	oddsClient := oddsapi.NewClient(oddsapi.ClientConfig{
		BaseURL:    cfg.Odds.BaseURL,
		APIKey:     cfg.Odds.APIKey,
		Regions:    cfg.Odds.Regions,
		Markets:    cfg.Odds.Markets,
		OddsFormat: cfg.Odds.OddsFormat,
		Timeout:    cfg.Odds.Timeout.Duration,
	})
	oddsSvc := service.NewOddsService(oddsClient, oddsapi.Normalizer{
		Preferred: cfg.Odds.PreferredBookmakers,
		DrawLabel: cfg.Odds.DrawLabel,
	}, cfg.Odds.Sport, logger)

	searchClient := search.NewClient(search.ClientConfig{
		BaseURL:   cfg.Search.BaseURL,
		UserAgent: cfg.Search.UserAgent,
		Timeout:   cfg.Search.Timeout.Duration,
	})
	intelSvc := service.NewIntelService(searchClient, deps.IntelCache, pacer, service.IntelConfig{
		Enabled:     cfg.Search.Enabled,
		MaxResults:  cfg.Search.MaxResults,
		QuerySuffix: cfg.Search.QuerySuffix,
	}, logger)

	llmClient := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout.Duration,
	})
	predictionSvc := service.NewPredictionService(llmClient, pacer, logger)

	deps.Runner = pipeline.NewRunner(
		oddsSvc,
		intelSvc,
		predictionSvc,
		pacer,
		fileSink,
		deps.Sinks[1:],
		pipeline.RunnerConfig{
			Leagues:         cfg.Pipeline.Leagues,
			PriorityLeagues: cfg.Pipeline.PriorityLeagues,
			MaxMatches:      cfg.Pipeline.MaxMatches,
			Source:          cfg.Output.SourceLabel,
			Model:           llmClient.Model(),
			Location:        loc,
		},
		logger,
	)

	// --- HTTP API (schedule mode only) ---
	if cfg.Server.Enabled && strings.EqualFold(cfg.Mode, "schedule") {
		deps.Trigger = make(chan struct{}, 1)
		apiLogger := logger.With(slog.String("component", "server"))
		deps.Server = server.NewServer(server.Config{
			Addr:        cfg.Server.Addr,
			CORSOrigins: cfg.Server.CORSOrigins,
			APIKey:      cfg.Server.APIKey,
			RateLimit:   cfg.Server.RateLimit,
			RateWindow:  cfg.Server.RateWindow.Duration,
			TrustProxy:  cfg.Server.TrustProxy,
		}, server.Handlers{
			Status: &handler.StatusHandler{
				Mode:     cfg.Mode,
				Cron:     cfg.Schedule.Cron,
				Timezone: loc.String(),
				Sport:    cfg.Odds.Sport,
				Model:    cfg.LLM.Model,
			},
			Reports:  handler.NewReportHandler(fileSink, deps.RunStore, apiLogger),
			Pipeline: handler.NewPipelineHandler(deps.Trigger, apiLogger),
		}, deps.RateLimiter, apiLogger)
	}

	return deps, cleanup, nil
}
