package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("CHAT_RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.SessionTTL != 15*time.Minute {
		t.Errorf("expected SESSION_TTL 15m, got %v", cfg.SessionTTL)
	}
	if cfg.ChatRateLimit != 20 {
		t.Errorf("expected fallback rate limit 20, got %d", cfg.ChatRateLimit)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected default model %q", cfg.Gemini.Model)
	}
}

func TestValidateRejectsEmptyPort(t *testing.T) {
	t.Setenv("PORT", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty PORT")
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"":                          true,
		"http://localhost:5173":     true,
		"http://127.0.0.1:3000":     true,
		"https://bridgequest.games": false,
	}
	for url, want := range cases {
		c := &Config{FrontendURL: url}
		if got := c.IsDevelopment(); got != want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestLoadGameOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "game.yaml")
	yamlDoc := `
session_budget_seconds: 120
expiry_policy: none
levels:
  - name: Harbor of Hellos
  - name: Summit of Signals
timings:
  tick: 1s
  greeting_delay: 250ms
  reply_delay: 500ms
  error_display: 1s
personalities:
  Brazil: playful, curious
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write game config: %v", err)
	}

	g, err := LoadGame(path)
	if err != nil {
		t.Fatalf("LoadGame failed: %v", err)
	}
	if g.SessionBudget != 120 {
		t.Errorf("expected budget 120, got %d", g.SessionBudget)
	}
	if g.LevelCount() != 2 || g.Levels[1].Name != "Summit of Signals" {
		t.Errorf("unexpected levels: %+v", g.Levels)
	}
	if g.Timings.GreetingDelay != 250*time.Millisecond {
		t.Errorf("expected greeting delay 250ms, got %v", g.Timings.GreetingDelay)
	}
	if g.Personality("Brazil") != "playful, curious" {
		t.Errorf("expected override personality, got %q", g.Personality("Brazil"))
	}
	if g.Personality("Japan") != "polite, thoughtful, precise" {
		t.Errorf("expected default personality to survive merge, got %q", g.Personality("Japan"))
	}
	if len(g.Partners) != 5 {
		t.Errorf("expected default partner roster, got %d entries", len(g.Partners))
	}
}

func TestLoadGameRejectsUnknownPolicy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "game.yaml")
	if err := os.WriteFile(path, []byte("expiry_policy: explode\n"), 0o600); err != nil {
		t.Fatalf("write game config: %v", err)
	}

	_, err := LoadGame(path)
	if err == nil || !strings.Contains(err.Error(), "expiry_policy") {
		t.Fatalf("expected expiry_policy error, got %v", err)
	}
}

func TestPersonalityFallback(t *testing.T) {
	t.Parallel()

	g := DefaultGame()
	if got := g.Personality("Atlantis"); got != "friendly, helpful" {
		t.Errorf("expected default personality, got %q", got)
	}
}
