package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/platform/oddsapi"
)

// OddsSource is the slice of the odds API client the service needs.
type OddsSource interface {
	GetOdds(ctx context.Context, sport string) ([]oddsapi.APIEvent, domain.Quota, error)
}

// OddsService fetches upcoming events and normalizes them into matches.
type OddsService struct {
	source     OddsSource
	normalizer oddsapi.Normalizer
	sport      string
	logger     *slog.Logger
}

// NewOddsService creates an OddsService for one sport key.
func NewOddsService(source OddsSource, normalizer oddsapi.Normalizer, sport string, logger *slog.Logger) *OddsService {
	return &OddsService{
		source:     source,
		normalizer: normalizer,
		sport:      sport,
		logger:     logger,
	}
}

// FetchMatches performs the single odds request of a run. A failed request
// is logged and reported through FetchResult.Failure with no matches; it is
// never returned as an error.
func (s *OddsService) FetchMatches(ctx context.Context) domain.FetchResult {
	events, quota, err := s.source.GetOdds(ctx, s.sport)
	s.logQuota(ctx, quota)
	if err != nil {
		attrs := []any{
			slog.String("sport", s.sport),
			slog.String("kind", string(domain.KindOf(err))),
			slog.String("error", err.Error()),
		}
		var pe *domain.ProviderError
		if errors.As(err, &pe) && pe.StatusCode != 0 {
			attrs = append(attrs, slog.Int("status", pe.StatusCode), slog.String("body", pe.Body))
		}
		s.logger.ErrorContext(ctx, "odds_service: fetch failed", attrs...)
		return domain.FetchResult{Quota: quota, Failure: domain.KindOf(err)}
	}

	res := domain.FetchResult{
		Matches:  make([]domain.Match, 0, len(events)),
		Received: len(events),
		Quota:    quota,
	}
	for _, ev := range events {
		m, err := s.normalizer.Normalize(ev)
		if err != nil {
			res.Discarded++
			s.logDiscard(ctx, ev, err)
			continue
		}
		res.Matches = append(res.Matches, m)
	}

	s.logger.InfoContext(ctx, "odds_service: fetched matches",
		slog.String("sport", s.sport),
		slog.Int("received", res.Received),
		slog.Int("usable", len(res.Matches)),
		slog.Int("discarded", res.Discarded),
	)
	return res
}

func (s *OddsService) logDiscard(ctx context.Context, ev oddsapi.APIEvent, err error) {
	if errors.Is(err, oddsapi.ErrNoBookmakers) || errors.Is(err, oddsapi.ErrNoPrices) {
		s.logger.DebugContext(ctx, "odds_service: event discarded",
			slog.String("event_id", ev.ID),
			slog.String("reason", err.Error()),
		)
		return
	}
	// Anything else is schema drift on the provider side.
	s.logger.WarnContext(ctx, "odds_service: event rejected",
		slog.String("event_id", ev.ID),
		slog.String("error", err.Error()),
	)
}

func (s *OddsService) logQuota(ctx context.Context, q domain.Quota) {
	if q.Remaining < 0 && q.Used < 0 {
		return
	}
	s.logger.InfoContext(ctx, "odds_service: quota",
		slog.Int("requests_remaining", q.Remaining),
		slog.Int("requests_used", q.Used),
	)
}
