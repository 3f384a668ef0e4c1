package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/matchoracle/internal/config"
	"github.com/alanyoungcy/matchoracle/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const oddsPayload = `[{
  "id": "evt-1",
  "sport_key": "soccer_epl",
  "sport_title": "Premier League",
  "commence_time": "2026-10-24T14:00:00Z",
  "home_team": "Team A",
  "away_team": "Team B",
  "bookmakers": [{"key": "pinnacle", "title": "Pinnacle", "markets": [{"key": "h2h", "outcomes": [
    {"name": "Team A", "price": 1.8},
    {"name": "Draw", "price": 3.6},
    {"name": "Team B", "price": 4.2}
  ]}]}]
}]`

const searchPage = `<html><body>
<div class="result"><a class="result__a" href="#">Team A injury update</a>
<a class="result__snippet">Striker back in training.</a></div>
</body></html>`

const completion = `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant",` +
	`"content":"{\"prediction\":\"Team A\",\"confidence\":\"Medium\",\"predicted_score\":\"2-1\",\"analysis\":\"Home form.\"}"}}]}`

// webhook records Discord posts.
type webhook struct {
	mu       sync.Mutex
	contents []string
}

func (w *webhook) handler(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.mu.Lock()
	w.contents = append(w.contents, body.Content)
	w.mu.Unlock()
	rw.WriteHeader(http.StatusNoContent)
}

func (w *webhook) all() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.contents...)
}

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

// testConfig points every provider at a local server and turns pacing off.
func testConfig(t *testing.T, hook *webhook) *config.Config {
	t.Helper()
	cfg := config.Defaults()

	cfg.Odds.BaseURL = serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-requests-remaining", "499")
		w.Write([]byte(oddsPayload))
	})
	cfg.Odds.APIKey = "odds-key"
	cfg.Search.BaseURL = serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPage))
	})
	cfg.LLM.BaseURL = serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completion))
	})
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.Model = "test-model"
	cfg.Notify.DiscordWebhookURL = serve(t, hook.handler)

	cfg.Pipeline.SearchDelayMin.Duration = 0
	cfg.Pipeline.SearchDelayMax.Duration = 0
	cfg.Pipeline.MatchDelayMin.Duration = 0
	cfg.Pipeline.MatchDelayMax.Duration = 0

	cfg.Output.Path = filepath.Join(t.TempDir(), "result.json")
	return &cfg
}

func wire(t *testing.T, cfg *config.Config) *Dependencies {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	deps, cleanup, err := Wire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	t.Cleanup(cleanup)
	return deps
}

func TestWireWithoutInfrastructure(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	deps := wire(t, cfg)

	if deps.IntelCache != nil || deps.LockManager != nil || deps.RunStore != nil || deps.BlobWriter != nil {
		t.Error("optional infrastructure should stay nil when disabled")
	}
	var names []string
	for _, s := range deps.Sinks {
		names = append(names, s.Name())
	}
	if strings.Join(names, ",") != "file,notify" {
		t.Errorf("sinks = %v, want [file notify]", names)
	}
	if deps.Location != time.UTC {
		t.Errorf("location = %v", deps.Location)
	}
}

func TestWireRejectsUnknownTimezone(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	cfg.Schedule.Timezone = "Mars/Olympus_Mons"
	if _, _, err := Wire(context.Background(), cfg); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestOnceModeWritesReportAndNotifies(t *testing.T) {
	hook := &webhook{}
	cfg := testConfig(t, hook)
	deps := wire(t, cfg)
	a := New(cfg, discardLogger())

	if err := a.OnceMode(context.Background(), deps); err != nil {
		t.Fatalf("OnceMode: %v", err)
	}

	data, err := os.ReadFile(cfg.Output.Path)
	if err != nil {
		t.Fatal(err)
	}
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != domain.ReportOK || len(report.Predictions) != 1 {
		t.Fatalf("report = %+v", report)
	}
	p := report.Predictions[0]
	if p.Prediction != domain.OutcomeHomeWin || p.Bookmaker != "Pinnacle" || !p.IntelAvailable {
		t.Errorf("prediction = %+v", p)
	}
	if report.Source != "The Odds API + test-model" {
		t.Errorf("source = %q", report.Source)
	}

	posts := hook.all()
	if len(posts) != 1 || !strings.Contains(posts[0], "Team A vs Team B") {
		t.Errorf("webhook posts = %q", posts)
	}
}

func TestOnceModeReportsOutputFailure(t *testing.T) {
	hook := &webhook{}
	cfg := testConfig(t, hook)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Output.Path = filepath.Join(blocker, "result.json")
	deps := wire(t, cfg)

	err := New(cfg, discardLogger()).OnceMode(context.Background(), deps)
	if err == nil {
		t.Fatal("expected an error when the result file cannot be written")
	}

	posts := hook.all()
	if len(posts) != 1 || !strings.Contains(posts[0], "run failed") {
		t.Errorf("webhook posts = %q", posts)
	}
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type brokenLock struct{}

func (brokenLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("connection refused")
}

func TestOnceModeSkipsWhenLockHeld(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	deps := wire(t, cfg)
	deps.LockManager = heldLock{}

	if err := New(cfg, discardLogger()).OnceMode(context.Background(), deps); err != nil {
		t.Fatalf("OnceMode: %v", err)
	}
	if _, err := os.Stat(cfg.Output.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("no run should happen while the lock is held, stat err = %v", err)
	}
}

func TestOnceModeFailsWhenLockUnavailable(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	deps := wire(t, cfg)
	deps.LockManager = brokenLock{}

	if err := New(cfg, discardLogger()).OnceMode(context.Background(), deps); err == nil {
		t.Fatal("expected lock error")
	}
}

func TestScheduleModeRunsOnStartAndStops(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	cfg.Mode = "schedule"
	cfg.Schedule.Cron = "0 6 * * *"
	cfg.Schedule.RunOnStart = true
	deps := wire(t, cfg)
	a := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ScheduleMode(ctx, deps) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(cfg.Output.Path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("startup run did not write the result file")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ScheduleMode returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ScheduleMode did not stop")
	}
}

func TestScheduleModeRejectsBadCron(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	cfg.Schedule.Cron = "every day"
	deps := wire(t, cfg)

	if err := New(cfg, discardLogger()).ScheduleMode(context.Background(), deps); err == nil {
		t.Fatal("expected cron parse error")
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	cfg.Mode = "trade"
	a := New(cfg, discardLogger())
	defer a.Close()

	if err := a.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "unsupported mode") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunLockKey(t *testing.T) {
	if got := runLockKey("Soccer_EPL"); got != "run:soccer_epl" {
		t.Errorf("got %q", got)
	}
}

func TestScheduleModeManualTrigger(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	cfg.Mode = "schedule"
	cfg.Schedule.RunOnStart = false
	cfg.Server.Enabled = true
	cfg.Server.Addr = "127.0.0.1:0"
	deps := wire(t, cfg)
	if deps.Server == nil || deps.Trigger == nil {
		t.Fatal("server should be wired in schedule mode")
	}
	a := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.ScheduleMode(ctx, deps) }()

	deps.Trigger <- struct{}{}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(cfg.Output.Path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("triggered run did not write the result file")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ScheduleMode did not stop")
	}
}

func TestWireSkipsServerInOnceMode(t *testing.T) {
	cfg := testConfig(t, &webhook{})
	cfg.Server.Enabled = true
	deps := wire(t, cfg)
	if deps.Server != nil {
		t.Error("the API only runs next to the scheduler")
	}
}
