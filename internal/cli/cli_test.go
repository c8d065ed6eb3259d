package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/xpnc/internal/model"
)

// run executes the root command with args and returns stdout
func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("xpnc %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	if out := run(t, "version"); !strings.HasPrefix(out, "xpnc v") {
		t.Errorf("version output = %q", out)
	}
}

func TestTokensCommand(t *testing.T) {
	if out := strings.TrimSpace(run(t, "tokens", "320")); out != "100" {
		t.Errorf("tokens 320 = %q, want 100", out)
	}
	if out := run(t, "tokens"); !strings.Contains(out, "250 tokens") {
		t.Errorf("token table missing top band: %q", out)
	}
}

func TestBonusCommand(t *testing.T) {
	out := run(t, "bonus", "--month", "9")
	if !strings.Contains(out, "Hunger Action Month") {
		t.Errorf("bonus --month 9 = %q", out)
	}
	bonusMonth = 0

	out = run(t, "bonus", "match", "Food", "--date", "2025-09-15")
	if !strings.HasPrefix(out, "✓") {
		t.Errorf("food should qualify in September: %q", out)
	}
	out = run(t, "bonus", "match", "animals", "--date", "2025-09-15")
	if !strings.HasPrefix(out, "✗") {
		t.Errorf("animals should not qualify in September: %q", out)
	}
	bonusDate = ""
}

func TestScoreWithoutProvider(t *testing.T) {
	out := run(t, "score", "--provider", "none",
		"--activity", "food", "--hours", "3", "--reflection", "Sorted donations.")

	var result model.ScoreResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if result.FinalScore != 110 || result.TokenAirdropAmount != 25 {
		t.Errorf("unexpected fallback score: %+v", result)
	}
	if result.FailureKind != model.FailureMissingCredentials {
		t.Errorf("failure kind = %q", result.FailureKind)
	}
}

func TestScoreSaveAndLedger(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	path := filepath.Join(t.TempDir(), "sub.yaml")
	content := "id: s-1\nactivity_type: food\nhours_logged: 2\nlocation_country: Kenya\nreflection: Packed boxes.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	run(t, "score", path, "--provider", "none", "--db", db, "--save", "--user", "alice")
	scoreSave, scoreUser = false, ""

	out := run(t, "ledger", "flag", "s-1", "--db", db)
	if !strings.Contains(out, "Flagged s-1") {
		t.Errorf("flag output: %q", out)
	}

	out = run(t, "ledger", "list", "--db", db, "--status", "pending")
	if !strings.Contains(out, "⚑ s-1") {
		t.Errorf("ledger list should mark s-1 flagged: %q", out)
	}
	ledgerStatus = ""

	out = run(t, "ledger", "approve", "s-1", "--db", db)
	if !strings.Contains(out, "First Step") {
		t.Errorf("approve should award First Step: %q", out)
	}

	out = run(t, "ledger", "level", "alice", "--db", db)
	if !strings.Contains(out, "Level 1 · Spark") || !strings.Contains(out, "Tokens: 10") {
		t.Errorf("unexpected level output: %q", out)
	}

	out = run(t, "ledger", "stats", "--db", db)
	for _, want := range []string{"1 approved, 0 flagged", "Tokens distributed: 10", "Approved hours:     2", "Most active:        Kenya"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q: %q", want, out)
		}
	}

	out = run(t, "ledger", "badges", "alice", "--db", db)
	if !strings.Contains(out, "Volunteer in 2 more countries") {
		t.Errorf("badges output missing hint: %q", out)
	}
}

func TestReadSubmission(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "sub.json")
	if err := os.WriteFile(jsonPath, []byte(`{
  "activity_type": "education",
  "hours_logged": 1.5,
  "reflection": "Tutored fractions."
}`), 0644); err != nil {
		t.Fatal(err)
	}

	sub, err := readSubmission(jsonPath, nil)
	if err != nil {
		t.Fatalf("readSubmission: %v", err)
	}
	if sub.ActivityType != "education" || sub.HoursLogged != 1.5 {
		t.Errorf("unexpected submission: %+v", sub)
	}

	sub, err = readSubmission("-", strings.NewReader(`{"activity_type": "food", "hours_logged": 2}`))
	if err != nil || sub.HoursLogged != 2 {
		t.Errorf("stdin submission: %+v, %v", sub, err)
	}

	if _, err := readSubmission("-", strings.NewReader("{")); err == nil {
		t.Error("expected parse error")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".xpnc")
	path, err := writeDefaultConfig(dir)
	if err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"provider: xai", "timeout: 90", "XAI_API_KEY"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config missing %q", want)
		}
	}

	if _, err := writeDefaultConfig(dir); err == nil {
		t.Error("expected error when config exists")
	}
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "xai-secret"

	if got := redact(cfg); got.LLM.APIKey == "xai-secret" {
		t.Error("api key not redacted")
	}
	if cfg.LLM.APIKey != "xai-secret" {
		t.Error("redact modified the original config")
	}
}

func TestEndpointFor(t *testing.T) {
	cfg := model.DefaultConfig()
	if got := endpointFor(cfg); got != "https://api.x.ai/v1" {
		t.Errorf("xai endpoint = %q", got)
	}

	cfg.LLM.Provider = "anthropic"
	if got := endpointFor(cfg); got != "anthropic" {
		t.Errorf("anthropic endpoint = %q", got)
	}

	cfg.LLM.BaseURL = "http://localhost:11434"
	if got := endpointFor(cfg); got != "http://localhost:11434" {
		t.Errorf("custom endpoint = %q", got)
	}
}
