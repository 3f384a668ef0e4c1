// Package notify sends run summaries to chat channels (Telegram, Discord).
// Delivery is filtered by event type so operators only get the alerts they
// ask for.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// Event types a Notifier can be configured to forward.
const (
	EventRunCompleted = "run_completed"
	EventNoMatches    = "no_matches"
	EventRunFailed    = "run_failed"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans a message out to every sender. It also serves as a report
// sink that posts a summary of each finished run.
type Notifier struct {
	senders  []Sender
	events   map[string]bool
	maxLines int
	logger   *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list forwards every
// event; maxLines bounds the per-match lines of a run summary.
func NewNotifier(senders []Sender, events []string, maxLines int, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders:  senders,
		events:   allowed,
		maxLines: maxLines,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify delivers title and message if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// Name implements domain.ReportSink.
func (n *Notifier) Name() string { return "notify" }

// Save implements domain.ReportSink by posting the run summary.
func (n *Notifier) Save(ctx context.Context, report domain.Report) error {
	event := EventRunCompleted
	if report.Status == domain.ReportNoMatches {
		event = EventNoMatches
	}
	return n.Notify(ctx, event, Title(report), Summary(report, n.maxLines))
}

// RunFailed reports a run that could not write its output.
func (n *Notifier) RunFailed(ctx context.Context, runErr error) error {
	return n.Notify(ctx, EventRunFailed, "matchoracle run failed", runErr.Error())
}

// dispatch tries every sender; one failure does not stop the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}

var _ domain.ReportSink = (*Notifier)(nil)
