package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/platform/oddsapi"
	"github.com/alanyoungcy/matchoracle/internal/platform/search"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(f float64) *float64 { return &f }

func sampleMatch() domain.Match {
	return domain.Match{
		ID:        "evt-1",
		League:    "Premier League",
		StartTime: time.Date(2026, 10, 24, 14, 0, 0, 0, time.UTC),
		HomeTeam:  "Team A",
		AwayTeam:  "Team B",
		Odds:      domain.Odds{HomeWin: ptr(1.5), Draw: ptr(3.0), AwayWin: ptr(6.0)},
		Bookmaker: "William Hill",
	}
}

type stagePacer struct {
	stages []domain.Stage
	err    error
}

func (p *stagePacer) Pause(_ context.Context, stage domain.Stage) error {
	p.stages = append(p.stages, stage)
	return p.err
}

type fakeOddsSource struct {
	events []oddsapi.APIEvent
	quota  domain.Quota
	err    error
	sport  string
}

func (f *fakeOddsSource) GetOdds(_ context.Context, sport string) ([]oddsapi.APIEvent, domain.Quota, error) {
	f.sport = sport
	return f.events, f.quota, f.err
}

type fakeSearcher struct {
	snippets []search.Snippet
	err      error
	queries  []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Snippet, error) {
	f.queries = append(f.queries, query)
	return f.snippets, f.err
}

type memIntelCache struct {
	data map[string]string
	sets int
}

func newMemIntelCache() *memIntelCache {
	return &memIntelCache{data: map[string]string{}}
}

func (c *memIntelCache) Get(_ context.Context, id string) (string, error) {
	v, ok := c.data[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (c *memIntelCache) Set(_ context.Context, id, text string) error {
	c.sets++
	c.data[id] = text
	return nil
}

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}
