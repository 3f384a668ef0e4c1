package oddsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

const oneEventJSON = `[{
  "id": "evt-1",
  "sport_key": "soccer_epl",
  "sport_title": "EPL",
  "commence_time": "2026-10-24T14:00:00Z",
  "home_team": "Team A",
  "away_team": "Team B",
  "bookmakers": [{
    "key": "williamhill",
    "title": "William Hill",
    "markets": [{"key": "h2h", "outcomes": [
      {"name": "Team A", "price": 1.5},
      {"name": "Team B", "price": 6.0},
      {"name": "Draw", "price": 3.0}
    ]}]
  }]
}]`

func TestGetOddsSuccess(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("x-requests-remaining", "487")
		w.Header().Set("x-requests-used", "13")
		w.Write([]byte(oneEventJSON))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		APIKey:     "k",
		Regions:    "uk",
		Markets:    "h2h",
		OddsFormat: "decimal",
	})
	events, quota, err := c.GetOdds(context.Background(), "soccer_epl")
	if err != nil {
		t.Fatalf("GetOdds: %v", err)
	}

	if gotPath != "/sports/soccer_epl/odds/" {
		t.Errorf("path = %q", gotPath)
	}
	for _, want := range []string{"apiKey=k", "regions=uk", "markets=h2h", "oddsFormat=decimal"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if quota.Remaining != 487 || quota.Used != 13 {
		t.Errorf("quota = %+v", quota)
	}
	if len(events) != 1 || events[0].HomeTeam != "Team A" || len(events[0].Bookmakers) != 1 {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestGetOddsStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   domain.FailureKind
	}{
		{status: http.StatusUnauthorized, kind: domain.FailureUnauthorized},
		{status: http.StatusTooManyRequests, kind: domain.FailureRateLimited},
		{status: http.StatusUnprocessableEntity, kind: domain.FailureUpstream},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("x-requests-remaining", "0")
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"message":"quota exhausted"}`))
		}))

		_, quota, err := NewClient(ClientConfig{BaseURL: srv.URL}).GetOdds(context.Background(), "upcoming")
		srv.Close()

		if got := domain.KindOf(err); got != tt.kind {
			t.Errorf("status %d: kind = %q, want %q", tt.status, got, tt.kind)
		}
		var pe *domain.ProviderError
		if !errors.As(err, &pe) || !strings.Contains(pe.Body, "quota exhausted") {
			t.Errorf("status %d: body excerpt missing from %v", tt.status, err)
		}
		if quota.Remaining != 0 {
			t.Errorf("status %d: quota should still be read, got %+v", tt.status, quota)
		}
	}
}

func TestGetOddsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, quota, err := NewClient(ClientConfig{BaseURL: srv.URL}).GetOdds(context.Background(), "upcoming")
	if domain.KindOf(err) != domain.FailureDecode {
		t.Errorf("kind = %q, want decode", domain.KindOf(err))
	}
	if quota.Remaining != -1 {
		t.Errorf("missing header should yield -1, got %d", quota.Remaining)
	}
}

func TestGetOddsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, _, err := NewClient(ClientConfig{BaseURL: url}).GetOdds(context.Background(), "upcoming")
	if domain.KindOf(err) != domain.FailureTransport {
		t.Errorf("kind = %q, want transport", domain.KindOf(err))
	}
}
