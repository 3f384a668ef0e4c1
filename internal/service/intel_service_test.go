package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/platform/search"
)

func TestBuildQuery(t *testing.T) {
	m := sampleMatch()
	if got := BuildQuery(m, "team news"); got != "Team A vs Team B Premier League team news" {
		t.Errorf("got %q", got)
	}
	m.League = ""
	if got := BuildQuery(m, ""); got != "Team A vs Team B" {
		t.Errorf("got %q", got)
	}
}

func TestFormatSnippetsKeepsOrder(t *testing.T) {
	got := FormatSnippets([]search.Snippet{
		{Title: "B", Body: "second"},
		{Title: "A", Body: "first"},
	})
	if got != "B: second\nA: first" {
		t.Errorf("got %q", got)
	}
}

func TestGatherSearchErrorYieldsPlaceholder(t *testing.T) {
	pacer := &stagePacer{}
	s := &fakeSearcher{err: &domain.ProviderError{Provider: "search", Kind: domain.FailureRateLimited, Err: domain.ErrRateLimited}}
	svc := NewIntelService(s, nil, pacer, IntelConfig{Enabled: true}, discardLogger())

	intel := svc.Gather(context.Background(), sampleMatch())
	if intel.Text != IntelPlaceholder {
		t.Errorf("text = %q, want placeholder", intel.Text)
	}
	if intel.Failure != domain.FailureRateLimited || intel.Available() {
		t.Errorf("unexpected intel %+v", intel)
	}
	if len(pacer.stages) != 1 || pacer.stages[0] != domain.StageSearch {
		t.Errorf("search pause not taken: %v", pacer.stages)
	}
}

func TestGatherGenericErrorIsTransport(t *testing.T) {
	s := &fakeSearcher{err: errors.New("boom")}
	intel := NewIntelService(s, nil, &stagePacer{}, IntelConfig{Enabled: true}, discardLogger()).Gather(context.Background(), sampleMatch())
	if intel.Text != IntelPlaceholder || intel.Failure != domain.FailureTransport {
		t.Errorf("unexpected intel %+v", intel)
	}
}

func TestGatherNoResults(t *testing.T) {
	intel := NewIntelService(&fakeSearcher{}, nil, &stagePacer{}, IntelConfig{Enabled: true}, discardLogger()).Gather(context.Background(), sampleMatch())
	if intel.Text != IntelPlaceholder || intel.Failure != domain.FailureEmpty {
		t.Errorf("unexpected intel %+v", intel)
	}
}

func TestGatherCachesSuccess(t *testing.T) {
	cache := newMemIntelCache()
	s := &fakeSearcher{snippets: []search.Snippet{{Title: "Injury", Body: "Striker out"}}}
	pacer := &stagePacer{}
	svc := NewIntelService(s, cache, pacer, IntelConfig{Enabled: true, QuerySuffix: "news"}, discardLogger())

	first := svc.Gather(context.Background(), sampleMatch())
	if first.Text != "Injury: Striker out" || !first.Available() || first.Cached {
		t.Fatalf("unexpected first intel %+v", first)
	}

	second := svc.Gather(context.Background(), sampleMatch())
	if !second.Cached || second.Text != first.Text {
		t.Errorf("second gather should hit cache, got %+v", second)
	}
	if len(s.queries) != 1 || len(pacer.stages) != 1 {
		t.Errorf("cache hit must skip search and pause: queries=%d pauses=%d", len(s.queries), len(pacer.stages))
	}
	if cache.sets != 1 {
		t.Errorf("sets = %d, want 1", cache.sets)
	}
}

func TestGatherDisabled(t *testing.T) {
	s := &fakeSearcher{}
	intel := NewIntelService(s, nil, &stagePacer{}, IntelConfig{Enabled: false}, discardLogger()).Gather(context.Background(), sampleMatch())
	if intel.Text != IntelPlaceholder || len(s.queries) != 0 {
		t.Errorf("disabled search should not be called: %+v", intel)
	}
}
