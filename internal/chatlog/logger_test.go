package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(Event{
		UserID:     "anon_1",
		SessionID:  "tab-1",
		Channel:    "session",
		Direction:  "inbound",
		EventType:  "chat_self",
		ContentRaw: "thanks,\n that helps",
	})

	path := filepath.Join(dir, "anon_1", "tab-1.ndjson")
	line := waitForLogLine(t, path)
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "thanks,\n that helps" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content != "thanks, that helps" {
		t.Fatalf("expected cleaned content, got %q", got.Content)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be filled in")
	}
}

func TestLoggerGlobalFileAndClose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "all", "all.ndjson")
	logger, err := New(Config{
		Enabled:       true,
		Dir:           dir,
		GlobalEnabled: true,
		GlobalPath:    global,
		QueueSize:     16,
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Log(Event{UserID: "u", SessionID: "s1", EventType: "outcome"})
	logger.Log(Event{UserID: "u", SessionID: "s2", EventType: "outcome"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(global)
	if err != nil {
		t.Fatalf("read global log: %v", err)
	}
	if n := len(strings.Split(strings.TrimSpace(string(data)), "\n")); n != 2 {
		t.Errorf("expected 2 lines in global log, got %d", n)
	}
}

func TestNewDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Enabled: false, Dir: ""}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Log(Event{UserID: "u"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestCleanForReadabilityStripsANSI(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31merror\x1b[0m plain"
	clean := cleanForReadability(raw)
	if strings.Contains(clean, "\x1b[31m") {
		t.Fatalf("expected ANSI sequence to be stripped: %q", clean)
	}
	if !strings.Contains(clean, "error plain") {
		t.Fatalf("expected readable text to remain: %q", clean)
	}
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	if got := safeName("../etc/passwd"); strings.Contains(got, "/") {
		t.Errorf("expected path separators to be replaced, got %q", got)
	}
	if got := safeName(".."); got != "unknown" {
		t.Errorf("expected dot-dot to map to unknown, got %q", got)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}

func TestLoggerClosesFileAtSessionEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir, QueueSize: 256}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	fl, ok := logger.(*fileLogger)
	if !ok {
		t.Fatalf("expected *fileLogger, got %T", logger)
	}

	for i := 0; i < 50; i++ {
		session := fmt.Sprintf("s%d", i)
		fl.Log(Event{UserID: "u", SessionID: session, EventType: "chat_self", ContentRaw: "hi"})
		fl.Log(Event{UserID: "u", SessionID: session, EventType: EventSessionEnd})
	}
	fl.Log(Event{UserID: "u", SessionID: "open", EventType: "chat_self", ContentRaw: "still here"})
	if err := fl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if n := len(fl.files); n != 1 {
		t.Errorf("expected only the unfinished session file to stay cached, got %d", n)
	}
	data, err := os.ReadFile(filepath.Join(dir, "u", "s49.ndjson"))
	if err != nil {
		t.Fatalf("read session log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], EventSessionEnd) {
		t.Errorf("expected chat line then session_end, got %q", lines)
	}
}
