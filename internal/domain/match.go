package domain

import (
	"strconv"
	"time"
)

// Outcome is one of the three mutually exclusive results of a head-to-head
// (h2h) market.
type Outcome string

const (
	OutcomeHomeWin Outcome = "home_win"
	OutcomeDraw    Outcome = "draw"
	OutcomeAwayWin Outcome = "away_win"
)

// Valid reports whether o is one of the three h2h outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeHomeWin, OutcomeDraw, OutcomeAwayWin:
		return true
	default:
		return false
	}
}

// Odds holds the decimal prices for the three h2h outcomes. A nil field is
// the placeholder for a price the selected bookmaker did not quote; it
// encodes as JSON null so it can never be confused with a real price.
type Odds struct {
	HomeWin *float64 `json:"home_win"`
	Draw    *float64 `json:"draw"`
	AwayWin *float64 `json:"away_win"`
}

// Resolved reports whether at least one of the three prices is present.
func (o Odds) Resolved() bool {
	return o.HomeWin != nil || o.Draw != nil || o.AwayWin != nil
}

// Price returns the price for the given outcome, or nil when unresolved.
func (o Odds) Price(outcome Outcome) *float64 {
	switch outcome {
	case OutcomeHomeWin:
		return o.HomeWin
	case OutcomeDraw:
		return o.Draw
	case OutcomeAwayWin:
		return o.AwayWin
	default:
		return nil
	}
}

// PriceNA is the textual placeholder used for unresolved prices in prompts
// and notifications.
const PriceNA = "N/A"

// FormatPrice renders a price for humans, using PriceNA for the placeholder.
func FormatPrice(p *float64) string {
	if p == nil {
		return PriceNA
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// Match is a provider event normalized to a single bookmaker's h2h prices.
type Match struct {
	ID        string    `json:"id"`
	SportKey  string    `json:"sport_key"`
	League    string    `json:"league"`
	StartTime time.Time `json:"start_time"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Odds      Odds      `json:"odds"`
	Bookmaker string    `json:"bookmaker_name"`
}

// Title returns the "Home vs Away" label used in reports and queries.
func (m Match) Title() string {
	return m.HomeTeam + " vs " + m.AwayTeam
}

// Quota is the request-quota telemetry reported by the odds provider.
// Negative values mean the header was absent.
type Quota struct {
	Remaining int
	Used      int
}

// FetchResult is the typed outcome of one odds fetch. Failure is empty on
// success; on failure Matches is empty and the run continues.
type FetchResult struct {
	Matches   []Match
	Received  int
	Discarded int
	Quota     Quota
	Failure   FailureKind
}
