package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/platform/search"
)

// IntelPlaceholder stands in for intel whenever search fails or finds
// nothing.
const IntelPlaceholder = "No recent news available."

// Searcher is the slice of the search client the service needs.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]search.Snippet, error)
}

// IntelConfig tunes query construction and result size.
type IntelConfig struct {
	Enabled     bool
	MaxResults  int
	QuerySuffix string
}

// IntelService gathers news snippets for a match.
type IntelService struct {
	searcher Searcher
	cache    domain.IntelCache
	pacer    domain.Pacer
	cfg      IntelConfig
	logger   *slog.Logger
}

// NewIntelService creates an IntelService. cache may be nil.
func NewIntelService(searcher Searcher, cache domain.IntelCache, pacer domain.Pacer, cfg IntelConfig, logger *slog.Logger) *IntelService {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &IntelService{
		searcher: searcher,
		cache:    cache,
		pacer:    pacer,
		cfg:      cfg,
		logger:   logger,
	}
}

// BuildQuery concatenates team names, the league when known, and suffix.
func BuildQuery(m domain.Match, suffix string) string {
	parts := []string{m.HomeTeam, "vs", m.AwayTeam}
	if m.League != "" {
		parts = append(parts, m.League)
	}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return strings.Join(parts, " ")
}

// FormatSnippets renders snippets as "title: body" lines in the given order.
func FormatSnippets(snippets []search.Snippet) string {
	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		lines = append(lines, s.Title+": "+s.Body)
	}
	return strings.Join(lines, "\n")
}

// Gather returns intel for m. It never fails: every error path yields the
// placeholder with Failure set.
func (s *IntelService) Gather(ctx context.Context, m domain.Match) domain.Intel {
	if !s.cfg.Enabled {
		return domain.Intel{Text: IntelPlaceholder, Failure: domain.FailureEmpty}
	}

	if s.cache != nil {
		text, err := s.cache.Get(ctx, m.ID)
		switch {
		case err == nil && text != "":
			s.logger.DebugContext(ctx, "intel_service: cache hit", slog.String("event_id", m.ID))
			return domain.Intel{Text: text, Sources: strings.Count(text, "\n") + 1, Cached: true}
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			s.logger.WarnContext(ctx, "intel_service: cache get failed",
				slog.String("event_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.pacer.Pause(ctx, domain.StageSearch); err != nil {
		return domain.Intel{Text: IntelPlaceholder, Failure: domain.FailureTransport}
	}

	query := BuildQuery(m, s.cfg.QuerySuffix)
	snippets, err := s.searcher.Search(ctx, query, s.cfg.MaxResults)
	if err != nil {
		s.logger.WarnContext(ctx, "intel_service: search failed",
			slog.String("match", m.Title()),
			slog.String("kind", string(domain.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return domain.Intel{Text: IntelPlaceholder, Failure: domain.KindOf(err)}
	}
	if len(snippets) == 0 {
		s.logger.InfoContext(ctx, "intel_service: no results", slog.String("match", m.Title()))
		return domain.Intel{Text: IntelPlaceholder, Failure: domain.FailureEmpty}
	}

	text := FormatSnippets(snippets)
	if s.cache != nil {
		if err := s.cache.Set(ctx, m.ID, text); err != nil {
			s.logger.WarnContext(ctx, "intel_service: cache set failed",
				slog.String("event_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "intel_service: gathered",
		slog.String("match", m.Title()),
		slog.Int("snippets", len(snippets)),
	)
	return domain.Intel{Text: text, Sources: len(snippets)}
}
