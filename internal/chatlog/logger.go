// Package chatlog writes session transcripts and outcomes as NDJSON.
package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Config controls where and whether events are written.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Event is one logged line.
type Event struct {
	Timestamp  time.Time      `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw,omitempty"`
	Content    string         `json:"content,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// EventSessionEnd is the last event of a session. Its file is closed after
// the event is written.
const EventSessionEnd = "session_end"

// Logger records events without blocking the caller.
type Logger interface {
	Log(event Event)
	Close() error
}

type noopLogger struct{}

func (noopLogger) Log(Event)    {}
func (noopLogger) Close() error { return nil }

// Noop returns a Logger that discards everything.
func Noop() Logger {
	return noopLogger{}
}

type fileLogger struct {
	cfg    Config
	log    *slog.Logger
	queue  chan Event
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	files  map[string]*os.File
	global *os.File
}

// New creates a Logger. A disabled config yields Noop.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileLogger{
		cfg:   cfg,
		log:   logger,
		queue: make(chan Event, cfg.QueueSize),
		done:  make(chan struct{}),
		files: make(map[string]*os.File),
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open global log: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

func (l *fileLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Content == "" && event.ContentRaw != "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.log.Warn("Conversation log queue full, dropping event",
			"user_id", event.UserID,
			"session_id", event.SessionID,
			"event_type", event.EventType)
	}
}

func (l *fileLogger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done
	return nil
}

func (l *fileLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		l.write(event)
	}
	for key, f := range l.files {
		if err := f.Close(); err != nil {
			l.log.Debug("Failed to close conversation log", "file", key, "error", err)
		}
	}
	if l.global != nil {
		_ = l.global.Close()
	}
}

func (l *fileLogger) write(event Event) {
	line, err := json.Marshal(event)
	if err != nil {
		l.log.Warn("Failed to encode conversation event", "error", err)
		return
	}
	line = append(line, '\n')

	f, err := l.sessionFile(event.UserID, event.SessionID)
	if err != nil {
		l.log.Warn("Failed to open conversation log", "user_id", event.UserID, "error", err)
	} else if _, err := f.Write(line); err != nil {
		l.log.Warn("Failed to write conversation log", "user_id", event.UserID, "error", err)
	}

	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			l.log.Warn("Failed to write global conversation log", "error", err)
		}
	}

	if event.EventType == EventSessionEnd {
		l.closeSession(event.UserID, event.SessionID)
	}
}

func (l *fileLogger) closeSession(userID, sessionID string) {
	key := sessionKey(userID, sessionID)
	f, ok := l.files[key]
	if !ok {
		return
	}
	delete(l.files, key)
	if err := f.Close(); err != nil {
		l.log.Debug("Failed to close conversation log", "file", key, "error", err)
	}
}

func sessionKey(userID, sessionID string) string {
	return safeName(userID) + "/" + safeName(sessionID)
}

func (l *fileLogger) sessionFile(userID, sessionID string) (*os.File, error) {
	key := sessionKey(userID, sessionID)
	if f, ok := l.files[key]; ok {
		return f, nil
	}
	dir := filepath.Join(l.cfg.Dir, safeName(userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, safeName(sessionID)+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l.files[key] = f
	return f, nil
}

var (
	ansiPattern   = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	unsafePattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// cleanForReadability strips escape sequences and control characters.
func cleanForReadability(raw string) string {
	s := ansiPattern.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func safeName(s string) string {
	s = unsafePattern.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "unknown"
	}
	return s
}
