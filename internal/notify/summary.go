package notify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// Title returns the headline of a run notification.
func Title(r domain.Report) string {
	if r.Status == domain.ReportNoMatches {
		return "matchoracle: no matches"
	}
	return fmt.Sprintf("matchoracle: %d predictions", r.Stats.Predicted)
}

// Summary renders a report as a short plain-text message with at most
// maxLines match lines; maxLines <= 0 lists every match.
func Summary(r domain.Report, maxLines int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s at %s\n", r.RunID, r.UpdateTime)

	if r.Status == domain.ReportNoMatches {
		sb.WriteString(r.Message)
		return sb.String()
	}

	s := r.Stats
	fmt.Fprintf(&sb, "%d fetched, %d in leagues, %d processed (%d predicted, %d unavailable)\n",
		s.Fetched, s.FilteredIn, s.Processed, s.Predicted, s.Unavailable)

	for i, p := range r.Predictions {
		if maxLines > 0 && i >= maxLines {
			fmt.Fprintf(&sb, "+%d more\n", len(r.Predictions)-i)
			break
		}
		sb.WriteString(predictionLine(p))
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func predictionLine(p domain.Prediction) string {
	if p.Status != domain.PredictionOK {
		return fmt.Sprintf("%s: unavailable (%s)", p.Match, p.Failure)
	}
	line := fmt.Sprintf("%s: %s", p.Match, p.Prediction)
	if p.Confidence != "" {
		line += " (" + p.Confidence + ")"
	}
	if p.PredictedScore != "" {
		line += " " + p.PredictedScore
	}
	return line
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
