package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "forever"
	cfg.Pipeline.MaxMatches = 0
	cfg.Pipeline.Leagues = nil
	cfg.LLM.Temperature = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "max_matches", "leagues whitelist", "temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
}

func TestValidateSearchResultsBounded(t *testing.T) {
	cfg := Defaults()
	cfg.Search.MaxResults = 50
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "max_results") {
		t.Fatalf("expected max_results error, got %v", err)
	}

	cfg.Search.MaxResults = maxSearchResults
	if err := cfg.Validate(); err != nil {
		t.Errorf("max_results %d should validate: %v", maxSearchResults, err)
	}

	cfg.Search.Enabled = false
	cfg.Search.MaxResults = 50
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled search must not be validated: %v", err)
	}
}

func TestValidateScheduleNeedsCron(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "schedule"
	cfg.Schedule.Cron = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "cron") {
		t.Fatalf("expected cron error, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Odds.Sport != "soccer_epl" {
		t.Errorf("sport = %q, want default", cfg.Odds.Sport)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "schedule"

[odds]
sport = "upcoming"

[pipeline]
max_matches = 5
leagues = ["Serie A"]
match_delay_max = "90s"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ODDS_KEY", "legacy-key")
	t.Setenv("MATCHORACLE_LLM_API_KEY", "llm-key")
	t.Setenv("MATCHORACLE_PIPELINE_MAX_MATCHES", "7")
	t.Setenv("MATCHORACLE_PIPELINE_PRIORITY_LEAGUES", " EPL , ,La Liga")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "schedule" {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if cfg.Odds.Sport != "upcoming" {
		t.Errorf("sport = %q", cfg.Odds.Sport)
	}
	if cfg.Odds.APIKey != "legacy-key" {
		t.Errorf("odds api key = %q", cfg.Odds.APIKey)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Errorf("llm api key = %q", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.MaxMatches != 7 {
		t.Errorf("max_matches = %d, want env override 7", cfg.Pipeline.MaxMatches)
	}
	if cfg.Pipeline.MatchDelayMax.Duration != 90*time.Second {
		t.Errorf("match_delay_max = %v", cfg.Pipeline.MatchDelayMax.Duration)
	}
	if got := cfg.Pipeline.PriorityLeagues; len(got) != 2 || got[0] != "EPL" || got[1] != "La Liga" {
		t.Errorf("priority leagues = %v", got)
	}
	// Untouched defaults survive the file merge.
	if cfg.Odds.DrawLabel != "Draw" {
		t.Errorf("draw label = %q", cfg.Odds.DrawLabel)
	}
}

func TestLoadPrefixedKeyWinsOverAlias(t *testing.T) {
	t.Setenv("ODDS_KEY", "legacy")
	t.Setenv("MATCHORACLE_ODDS_API_KEY", "primary")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Odds.APIKey != "primary" {
		t.Errorf("api key = %q, want primary", cfg.Odds.APIKey)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Odds.APIKey = "secret"
	cfg.LLM.APIKey = "secret"
	cfg.Notify.TelegramToken = ""

	out := RedactedConfig(&cfg)
	if out.Odds.APIKey != redacted || out.LLM.APIKey != redacted {
		t.Errorf("keys not redacted: %q %q", out.Odds.APIKey, out.LLM.APIKey)
	}
	if out.Notify.TelegramToken != "" {
		t.Errorf("empty secret should stay empty, got %q", out.Notify.TelegramToken)
	}
	if cfg.Odds.APIKey != "secret" {
		t.Error("original config was mutated")
	}

	out.Pipeline.Leagues[0] = "mutated"
	if cfg.Pipeline.Leagues[0] == "mutated" {
		t.Error("redacted copy shares the leagues slice")
	}
}

func TestValidateServer(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Enabled = true
	cfg.Server.Addr = ""
	cfg.Server.RateWindow.Duration = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server: addr", "server: rate_window"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}

	cfg.Server.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled server must not be validated: %v", err)
	}
}
