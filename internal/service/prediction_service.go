package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/matchoracle/internal/domain"
	"github.com/alanyoungcy/matchoracle/internal/oddsmath"
)

// Completer is the slice of the LLM client the service needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Reply is the structured answer parsed from the model.
type Reply struct {
	Prediction     domain.Outcome
	Confidence     string
	WinProbability string
	PredictedScore string
	Analysis       string
	KeyFactors     []string
}

// PredictionService asks the model for one prediction per match.
type PredictionService struct {
	llm    Completer
	pacer  domain.Pacer
	logger *slog.Logger
}

// NewPredictionService creates a PredictionService.
func NewPredictionService(llm Completer, pacer domain.Pacer, logger *slog.Logger) *PredictionService {
	return &PredictionService{llm: llm, pacer: pacer, logger: logger}
}

// Predict returns a prediction record for m. A failed call or an unparseable
// reply yields the unavailable sentinel carrying the failure kind.
func (s *PredictionService) Predict(ctx context.Context, m domain.Match, intel domain.Intel) domain.Prediction {
	market := oddsmath.View(m.Odds)

	if err := s.pacer.Pause(ctx, domain.StageLLM); err != nil {
		return domain.Unavailable(m, market, intel, domain.FailureTransport)
	}

	start := time.Now()
	raw, err := s.llm.Complete(ctx, BuildPrompt(m, intel, market))
	latency := time.Since(start)
	if err != nil {
		s.logger.WarnContext(ctx, "prediction_service: llm call failed",
			slog.String("match", m.Title()),
			slog.String("kind", string(domain.KindOf(err))),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		return domain.Unavailable(m, market, intel, domain.KindOf(err))
	}

	reply, err := ParseReply(raw, m)
	if err != nil {
		s.logger.WarnContext(ctx, "prediction_service: unparseable reply",
			slog.String("match", m.Title()),
			slog.String("raw", domain.Excerpt(raw)),
			slog.String("error", err.Error()),
		)
		return domain.Unavailable(m, market, intel, domain.FailureDecode)
	}

	s.logger.InfoContext(ctx, "prediction_service: predicted",
		slog.String("match", m.Title()),
		slog.String("prediction", string(reply.Prediction)),
		slog.String("confidence", reply.Confidence),
		slog.Duration("latency", latency),
	)

	return domain.Prediction{
		Match:          m.Title(),
		League:         m.League,
		HomeTeam:       m.HomeTeam,
		AwayTeam:       m.AwayTeam,
		StartTime:      m.StartTime,
		Bookmaker:      m.Bookmaker,
		Odds:           m.Odds,
		Market:         market,
		Prediction:     reply.Prediction,
		Confidence:     reply.Confidence,
		WinProbability: reply.WinProbability,
		PredictedScore: reply.PredictedScore,
		Analysis:       reply.Analysis,
		KeyFactors:     reply.KeyFactors,
		IntelAvailable: intel.Available(),
		Status:         domain.PredictionOK,
	}
}

// BuildPrompt embeds the match, its odds and the intel text, and asks for a
// bare JSON object with a fixed schema.
func BuildPrompt(m domain.Match, intel domain.Intel, market domain.MarketView) string {
	var sb strings.Builder

	sb.WriteString("You are a football analyst. Predict the result of the match below.\n\n")

	league := m.League
	if league == "" {
		league = "Unknown"
	}
	fmt.Fprintf(&sb, "League: %s\n", league)
	fmt.Fprintf(&sb, "Match: %s (home) vs %s (away)\n", m.HomeTeam, m.AwayTeam)
	fmt.Fprintf(&sb, "Kickoff (UTC): %s\n\n", m.StartTime.UTC().Format("2006-01-02 15:04"))

	fmt.Fprintf(&sb, "Decimal odds from %s:\n", m.Bookmaker)
	fmt.Fprintf(&sb, "- Home win: %s%s\n", domain.FormatPrice(m.Odds.HomeWin), impliedSuffix(market.HomeWin))
	fmt.Fprintf(&sb, "- Draw: %s%s\n", domain.FormatPrice(m.Odds.Draw), impliedSuffix(market.Draw))
	fmt.Fprintf(&sb, "- Away win: %s%s\n", domain.FormatPrice(m.Odds.AwayWin), impliedSuffix(market.AwayWin))
	if market.Margin != "" {
		fmt.Fprintf(&sb, "Bookmaker margin: %s\n", market.Margin)
	}

	sb.WriteString("\nRecent news:\n")
	sb.WriteString(intel.Text)
	sb.WriteString("\n\n")

	sb.WriteString("Respond with ONLY a JSON object, no markdown and no other text, using exactly these fields:\n")
	sb.WriteString(`{"prediction": "home_win" | "draw" | "away_win", `)
	sb.WriteString(`"confidence": "High" | "Medium" | "Low", `)
	sb.WriteString(`"win_probability": "percentage for the predicted outcome, e.g. 55%", `)
	sb.WriteString(`"predicted_score": "e.g. 2-1", `)
	sb.WriteString(`"analysis": "one or two sentences", `)
	sb.WriteString(`"key_factors": ["short factor", "..."]}`)
	sb.WriteString("\n")

	return sb.String()
}

func impliedSuffix(p string) string {
	if p == "" {
		return ""
	}
	return " (implied " + p + ")"
}

const fence = "```"

// StripCodeFence removes a surrounding markdown code fence, with or without
// a language tag. Text without a leading fence is only trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimPrefix(s, fence)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
	})
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// wireReply is the loose on-the-wire shape of a reply. Models drift between
// strings and numbers, so scalar fields accept both.
type wireReply struct {
	Prediction     looseString  `json:"prediction"`
	Confidence     looseString  `json:"confidence"`
	WinProbability looseString  `json:"win_probability"`
	PredictedScore looseString  `json:"predicted_score"`
	Analysis       looseString  `json:"analysis"`
	Reason         looseString  `json:"reason"`
	KeyFactors     looseStrings `json:"key_factors"`
}

type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = looseString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = looseString(n.String())
	return nil
}

type looseStrings []string

func (l *looseStrings) UnmarshalJSON(b []byte) error {
	var list []looseString
	if err := json.Unmarshal(b, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s != "" {
				out = append(out, string(s))
			}
		}
		*l = out
		return nil
	}
	var one looseString
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one != "" {
		*l = []string{string(one)}
	}
	return nil
}

// ParseReply decodes a model reply for m. It strips code fences, accepts a
// bare object or a one-element array, and falls back to the outermost
// {...} span when the model wrapped the object in prose.
func ParseReply(raw string, m domain.Match) (Reply, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return Reply{}, fmt.Errorf("parse reply: %w", errEmptyReply)
	}

	w, err := decodeReply(text)
	if err != nil {
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return Reply{}, fmt.Errorf("parse reply: %w", err)
		}
		if w, err = decodeReply(text[start : end+1]); err != nil {
			return Reply{}, fmt.Errorf("parse reply: %w", err)
		}
	}

	outcome, ok := NormalizeOutcome(string(w.Prediction), m)
	if !ok {
		return Reply{}, fmt.Errorf("parse reply: unknown prediction %q", w.Prediction)
	}

	analysis := string(w.Analysis)
	if analysis == "" {
		analysis = string(w.Reason)
	}

	return Reply{
		Prediction:     outcome,
		Confidence:     string(w.Confidence),
		WinProbability: percentString(string(w.WinProbability)),
		PredictedScore: string(w.PredictedScore),
		Analysis:       analysis,
		KeyFactors:     []string(w.KeyFactors),
	}, nil
}

var errEmptyReply = errors.New("empty reply")

func decodeReply(text string) (wireReply, error) {
	var w wireReply
	if strings.HasPrefix(text, "[") {
		var list []wireReply
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return w, err
		}
		if len(list) == 0 {
			return w, errEmptyReply
		}
		return list[0], nil
	}
	err := json.Unmarshal([]byte(text), &w)
	return w, err
}

// NormalizeOutcome maps the many spellings models use ("Home Win", "home",
// "1", "X", a team name) onto the three h2h outcomes.
func NormalizeOutcome(s string, m domain.Match) (domain.Outcome, bool) {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "":
		return "", false
	case m.HomeTeam != "" && strings.EqualFold(trimmed, m.HomeTeam):
		return domain.OutcomeHomeWin, true
	case m.AwayTeam != "" && strings.EqualFold(trimmed, m.AwayTeam):
		return domain.OutcomeAwayWin, true
	}

	key := strings.ToLower(trimmed)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "home_win", "home", "homewin", "1", "h":
		return domain.OutcomeHomeWin, true
	case "draw", "x", "tie", "d":
		return domain.OutcomeDraw, true
	case "away_win", "away", "awaywin", "2", "a":
		return domain.OutcomeAwayWin, true
	}
	return "", false
}

// percentString renders bare numbers as percentages: 0.62 -> "62%",
// 62 -> "62%". Anything else is kept as written.
func percentString(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	if d.IsPositive() && d.LessThanOrEqual(decimal.NewFromInt(1)) {
		d = d.Mul(decimal.NewFromInt(100))
	}
	return d.String() + "%"
}
