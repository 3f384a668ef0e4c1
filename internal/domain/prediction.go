package domain

import "time"

// PredictionStatus marks whether a record carries a real model answer or is
// a sentinel standing in for a failed prediction.
type PredictionStatus string

const (
	PredictionOK          PredictionStatus = "ok"
	PredictionUnavailable PredictionStatus = "unavailable"
)

// AnalysisUnavailable is the analysis text of a sentinel record.
const AnalysisUnavailable = "analysis unavailable"

// Intel is the search context gathered for one match. Text is always
// usable in a prompt: on failure it holds the placeholder and Failure says
// why.
type Intel struct {
	Text    string
	Sources int
	Cached  bool
	Failure FailureKind
}

// Available reports whether Text came from real search results.
func (i Intel) Available() bool {
	return i.Failure == FailureNone && i.Sources > 0
}

// MarketView is the bookmaker-derived context recorded alongside a
// prediction: implied probabilities per outcome and the bookmaker margin,
// formatted as percentages.
type MarketView struct {
	HomeWin string `json:"home_win,omitempty"`
	Draw    string `json:"draw,omitempty"`
	AwayWin string `json:"away_win,omitempty"`
	Margin  string `json:"margin,omitempty"`
}

// Prediction is one output record. Match, team names and odds are copied
// verbatim from the normalized match; the remaining fields come from the
// model reply, or are filled with the sentinel when Status is unavailable.
type Prediction struct {
	Match          string           `json:"match"`
	League         string           `json:"league,omitempty"`
	HomeTeam       string           `json:"home_team"`
	AwayTeam       string           `json:"away_team"`
	StartTime      time.Time        `json:"start_time"`
	Bookmaker      string           `json:"bookmaker_name"`
	Odds           Odds             `json:"odds"`
	Market         MarketView       `json:"implied_probability"`
	Prediction     Outcome          `json:"prediction,omitempty"`
	Confidence     string           `json:"confidence,omitempty"`
	WinProbability string           `json:"win_probability,omitempty"`
	PredictedScore string           `json:"predicted_score,omitempty"`
	Analysis       string           `json:"analysis"`
	KeyFactors     []string         `json:"key_factors,omitempty"`
	IntelAvailable bool             `json:"intel_available"`
	Status         PredictionStatus `json:"status"`
	Failure        FailureKind      `json:"failure,omitempty"`
}

// Unavailable builds the sentinel record for a match whose prediction
// failed with the given kind.
func Unavailable(m Match, market MarketView, intel Intel, kind FailureKind) Prediction {
	return Prediction{
		Match:          m.Title(),
		League:         m.League,
		HomeTeam:       m.HomeTeam,
		AwayTeam:       m.AwayTeam,
		StartTime:      m.StartTime,
		Bookmaker:      m.Bookmaker,
		Odds:           m.Odds,
		Market:         market,
		Analysis:       AnalysisUnavailable,
		IntelAvailable: intel.Available(),
		Status:         PredictionUnavailable,
		Failure:        kind,
	}
}
