package oddsapi

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// SchemaVersion is the odds API payload version these types decode.
const SchemaVersion = "v4"

// marketH2H is the head-to-head market key.
const marketH2H = "h2h"

var (
	// ErrNoBookmakers marks an event that no bookmaker has priced yet.
	ErrNoBookmakers = errors.New("oddsapi: event has no bookmakers")
	// ErrNoPrices marks an event whose selected bookmaker resolves none of
	// the three h2h outcomes.
	ErrNoPrices = errors.New("oddsapi: no h2h prices resolved")
)

// APIEvent is one element of the /sports/{sport}/odds response.
type APIEvent struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime string         `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []APIBookmaker `json:"bookmakers"`
}

// APIBookmaker is one bookmaker's quote set for an event.
type APIBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate string      `json:"last_update"`
	Markets    []APIMarket `json:"markets"`
}

// APIMarket is a named market with its priced outcomes.
type APIMarket struct {
	Key      string       `json:"key"`
	Outcomes []APIOutcome `json:"outcomes"`
}

// APIOutcome is a single outcome label with its decimal price.
type APIOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// validate checks the fields every event must carry. A violation means the
// provider contract drifted, which is reported instead of absorbed.
func (e *APIEvent) validate() error {
	switch {
	case e.ID == "":
		return errors.New("missing id")
	case e.HomeTeam == "":
		return errors.New("missing home_team")
	case e.AwayTeam == "":
		return errors.New("missing away_team")
	case e.CommenceTime == "":
		return errors.New("missing commence_time")
	}
	return nil
}

// Normalizer turns APIEvents into domain matches using a single preferred
// bookmaker per event.
type Normalizer struct {
	// Preferred bookmaker keys, highest priority first.
	Preferred []string
	// DrawLabel is the outcome name the provider uses for a draw.
	DrawLabel string
}

// SelectBookmaker returns the first preferred bookmaker quoting the event,
// falling back to the first bookmaker listed.
func (n Normalizer) SelectBookmaker(books []APIBookmaker) (APIBookmaker, bool) {
	if len(books) == 0 {
		return APIBookmaker{}, false
	}
	for _, key := range n.Preferred {
		idx := slices.IndexFunc(books, func(b APIBookmaker) bool { return b.Key == key })
		if idx >= 0 {
			return books[idx], true
		}
	}
	return books[0], true
}

// h2hOutcomes returns the h2h market's outcomes, or the first market's when
// no market is keyed h2h.
func h2hOutcomes(markets []APIMarket) []APIOutcome {
	if len(markets) == 0 {
		return nil
	}
	for _, m := range markets {
		if m.Key == marketH2H {
			return m.Outcomes
		}
	}
	return markets[0].Outcomes
}

// MapOutcomes assigns prices by label: an outcome named after the home team
// is the home win, after the away team the away win, and DrawLabel the draw.
// List position is irrelevant and unknown labels are ignored.
func (n Normalizer) MapOutcomes(outcomes []APIOutcome, home, away string) domain.Odds {
	var odds domain.Odds
	for _, o := range outcomes {
		price := o.Price
		switch o.Name {
		case home:
			odds.HomeWin = &price
		case away:
			odds.AwayWin = &price
		case n.DrawLabel:
			odds.Draw = &price
		}
	}
	return odds
}

// Normalize converts one event. It returns ErrNoBookmakers or ErrNoPrices
// for events to discard, and a decode error for events that break the
// schema.
func (n Normalizer) Normalize(ev APIEvent) (domain.Match, error) {
	if err := ev.validate(); err != nil {
		return domain.Match{}, domain.NewDecodeError(provider, fmt.Errorf("event %q: %w", ev.ID, err))
	}

	start, err := time.Parse(time.RFC3339, ev.CommenceTime)
	if err != nil {
		return domain.Match{}, domain.NewDecodeError(provider, fmt.Errorf("event %s: commence_time: %w", ev.ID, err))
	}

	book, ok := n.SelectBookmaker(ev.Bookmakers)
	if !ok {
		return domain.Match{}, ErrNoBookmakers
	}

	odds := n.MapOutcomes(h2hOutcomes(book.Markets), ev.HomeTeam, ev.AwayTeam)
	if !odds.Resolved() {
		return domain.Match{}, fmt.Errorf("event %s bookmaker %s: %w", ev.ID, book.Key, ErrNoPrices)
	}

	name := book.Title
	if name == "" {
		name = book.Key
	}

	return domain.Match{
		ID:        ev.ID,
		SportKey:  ev.SportKey,
		League:    ev.SportTitle,
		StartTime: start.UTC(),
		HomeTeam:  ev.HomeTeam,
		AwayTeam:  ev.AwayTeam,
		Odds:      odds,
		Bookmaker: name,
	}, nil
}
