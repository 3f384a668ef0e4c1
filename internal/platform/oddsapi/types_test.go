package oddsapi

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

func event(books ...APIBookmaker) APIEvent {
	return APIEvent{
		ID:           "evt",
		SportKey:     "soccer_epl",
		SportTitle:   "Premier League",
		CommenceTime: "2026-10-24T14:00:00Z",
		HomeTeam:     "Team A",
		AwayTeam:     "Team B",
		Bookmakers:   books,
	}
}

func book(key string, outcomes ...APIOutcome) APIBookmaker {
	return APIBookmaker{
		Key:     key,
		Title:   key,
		Markets: []APIMarket{{Key: "h2h", Outcomes: outcomes}},
	}
}

func priceOf(t *testing.T, p *float64) float64 {
	t.Helper()
	if p == nil {
		t.Fatal("price is nil")
	}
	return *p
}

func TestNormalizeSkipsEventWithoutBookmakers(t *testing.T) {
	n := Normalizer{DrawLabel: "Draw"}
	_, err := n.Normalize(event())
	if !errors.Is(err, ErrNoBookmakers) {
		t.Fatalf("err = %v, want ErrNoBookmakers", err)
	}
}

func TestNormalizeMapsByLabelNotPosition(t *testing.T) {
	n := Normalizer{DrawLabel: "Draw"}
	m, err := n.Normalize(event(book("betfair_ex_uk",
		APIOutcome{Name: "Team B", Price: 2.5},
		APIOutcome{Name: "Draw", Price: 3.2},
		APIOutcome{Name: "Team A", Price: 1.8},
	)))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := priceOf(t, m.Odds.HomeWin); got != 1.8 {
		t.Errorf("home_win = %v, want 1.8", got)
	}
	if got := priceOf(t, m.Odds.Draw); got != 3.2 {
		t.Errorf("draw = %v, want 3.2", got)
	}
	if got := priceOf(t, m.Odds.AwayWin); got != 2.5 {
		t.Errorf("away_win = %v, want 2.5", got)
	}
	if m.League != "Premier League" || m.HomeTeam != "Team A" || m.AwayTeam != "Team B" {
		t.Errorf("unexpected match %+v", m)
	}
}

func TestNormalizeLeavesPlaceholderForMissingPrice(t *testing.T) {
	n := Normalizer{DrawLabel: "Draw"}
	m, err := n.Normalize(event(book("pinnacle",
		APIOutcome{Name: "Team A", Price: 2.1},
		APIOutcome{Name: "Over 2.5", Price: 1.9},
	)))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if m.Odds.Draw != nil || m.Odds.AwayWin != nil {
		t.Errorf("unquoted outcomes must stay nil, got %+v", m.Odds)
	}
	if domain.FormatPrice(m.Odds.Draw) != domain.PriceNA {
		t.Error("placeholder should format as N/A")
	}
}

func TestNormalizeDiscardsUnresolvableEvent(t *testing.T) {
	n := Normalizer{DrawLabel: "Draw"}
	_, err := n.Normalize(event(book("pinnacle", APIOutcome{Name: "Someone Else", Price: 2})))
	if !errors.Is(err, ErrNoPrices) {
		t.Fatalf("err = %v, want ErrNoPrices", err)
	}
}

func TestNormalizeRejectsSchemaDrift(t *testing.T) {
	n := Normalizer{DrawLabel: "Draw"}

	ev := event(book("pinnacle", APIOutcome{Name: "Team A", Price: 2}))
	ev.HomeTeam = ""
	if _, err := n.Normalize(ev); domain.KindOf(err) != domain.FailureDecode {
		t.Errorf("missing home_team: kind = %q, want decode", domain.KindOf(err))
	}

	ev = event(book("pinnacle", APIOutcome{Name: "Team A", Price: 2}))
	ev.CommenceTime = "tomorrow"
	if _, err := n.Normalize(ev); domain.KindOf(err) != domain.FailureDecode {
		t.Errorf("bad commence_time: kind = %q, want decode", domain.KindOf(err))
	}
}

func TestSelectBookmakerPriority(t *testing.T) {
	books := []APIBookmaker{
		book("unibet"),
		book("williamhill"),
		book("betfair_ex_uk"),
	}
	n := Normalizer{Preferred: []string{"betfair_ex_uk", "williamhill"}}
	if b, _ := n.SelectBookmaker(books); b.Key != "betfair_ex_uk" {
		t.Errorf("got %s, want betfair_ex_uk", b.Key)
	}

	n = Normalizer{Preferred: []string{"pinnacle"}}
	if b, _ := n.SelectBookmaker(books); b.Key != "unibet" {
		t.Errorf("fallback got %s, want first bookmaker", b.Key)
	}
}

func TestH2HOutcomesFallsBackToFirstMarket(t *testing.T) {
	markets := []APIMarket{
		{Key: "spreads", Outcomes: []APIOutcome{{Name: "x"}}},
		{Key: "h2h", Outcomes: []APIOutcome{{Name: "y"}}},
	}
	if got := h2hOutcomes(markets); got[0].Name != "y" {
		t.Errorf("h2h market should win, got %v", got)
	}
	if got := h2hOutcomes(markets[:1]); got[0].Name != "x" {
		t.Errorf("first market fallback, got %v", got)
	}
	if got := h2hOutcomes(nil); got != nil {
		t.Errorf("no markets should yield nil, got %v", got)
	}
}
