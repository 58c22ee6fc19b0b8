package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/content"
	"github.com/ashureev/bridgequest/internal/domain"
	"github.com/ashureev/bridgequest/internal/game"
	"github.com/ashureev/bridgequest/internal/identity"
	"github.com/ashureev/bridgequest/internal/matchmaking"
	"github.com/ashureev/bridgequest/internal/partner"
	"github.com/ashureev/bridgequest/internal/schedule"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

type stubPuzzles struct{}

func (stubPuzzles) Generate(_ context.Context, req content.Request) domain.Puzzle {
	return domain.Puzzle{
		ID:           "stub",
		Type:         content.TypeForLevel(req.Level),
		Title:        "Stub",
		Difficulty:   req.Level,
		SelfClues:    []string{"six times seven"},
		PartnerClues: []string{"hidden clue"},
		Solution:     "42",
	}
}

type stubVoice struct{}

func (stubVoice) Reply(context.Context, partner.Request) string { return "hello from afar" }

type playFixture struct {
	url   string
	sched *schedule.Manual
	mgr   *game.Manager
}

func newPlayFixture(t *testing.T, chatLimit int) *playFixture {
	t.Helper()
	sched := schedule.NewManual()
	g := config.DefaultGame()
	mgr := game.NewManager()
	lobby := matchmaking.NewLobby(g, sched, func(int) int { return 0 })
	factory := func(userID, tabID string) *game.Session {
		return game.NewSession(game.Deps{
			Game:      g,
			Puzzles:   stubPuzzles{},
			Voice:     stubVoice{},
			Scheduler: sched,
		}, userID, "")
	}
	limiter := NewRateLimiter(chatLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	r := chi.NewRouter()
	r.Use(identity.Middleware(true))
	r.Get("/ws/play", NewPlayHandler(mgr, lobby, factory, limiter, "*", true).ServeHTTP)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(mgr.CloseAll)
	return &playFixture{
		url:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/play?session_id=tab-1",
		sched: sched,
		mgr:   mgr,
	}
}

func dial(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func sendIntent(ctx context.Context, t *testing.T, conn *websocket.Conn, typ, text string) {
	t.Helper()
	data, _ := json.Marshal(clientMessage{Type: typ, Text: text})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, match func(serverMessage) bool) serverMessage {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read failed while waiting for message: %v", err)
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid server message %s: %v", data, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(serverMessage) bool {
	return func(m serverMessage) bool { return m.Type == typ }
}

func sessionEvent(typ game.EventType) func(serverMessage) bool {
	return func(m serverMessage) bool {
		return m.Type == "session_event" && m.Event != nil && m.Event.Type == typ
	}
}

// ready blocks until the server has processed every intent sent so far.
func ready(ctx context.Context, t *testing.T, conn *websocket.Conn) {
	t.Helper()
	sendIntent(ctx, t, conn, "ping", "")
	readUntil(ctx, t, conn, ofType("pong"))
}

func matchPartner(ctx context.Context, t *testing.T, f *playFixture, conn *websocket.Conn) serverMessage {
	t.Helper()
	ready(ctx, t, conn)
	f.sched.Advance(7 * time.Second)
	found := readUntil(ctx, t, conn, ofType("match_found"))
	readUntil(ctx, t, conn, sessionEvent(game.EventPuzzle))
	return found
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestPlayMatchThenSolve(t *testing.T) {
	f := newPlayFixture(t, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(ctx, t, f.url)

	ready(ctx, t, conn)
	f.sched.Advance(7 * time.Second)
	status := readUntil(ctx, t, conn, ofType("lobby_status"))
	if status.Status == nil || status.Status.Step != 1 {
		t.Fatalf("unexpected first lobby status: %+v", status.Status)
	}
	found := readUntil(ctx, t, conn, ofType("match_found"))
	if found.Partner == nil || found.Partner.Name != "Aravind" || found.SessionID == "" {
		t.Fatalf("unexpected match: %+v", found)
	}

	puzzle := readUntil(ctx, t, conn, sessionEvent(game.EventPuzzle))
	if puzzle.Event.Puzzle == nil || puzzle.Event.Puzzle.Clues[0] != "six times seven" {
		t.Fatalf("unexpected puzzle event: %+v", puzzle.Event)
	}

	sendIntent(ctx, t, conn, "submit", "41")
	readUntil(ctx, t, conn, sessionEvent(game.EventAnswerRejected))

	sendIntent(ctx, t, conn, "submit", "42")
	readUntil(ctx, t, conn, func(m serverMessage) bool {
		return m.Type == "session_event" && m.Event.Type == game.EventEntry &&
			m.Event.Entry.Text == "Puzzle Solved! Unity connection strengthening..."
	})

	sendIntent(ctx, t, conn, "snapshot", "")
	snap := readUntil(ctx, t, conn, ofType("snapshot"))
	if snap.Snapshot == nil || snap.Snapshot.Level != 2 || snap.Snapshot.ErrorCount != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap.Snapshot)
	}
	if f.mgr.Count() != 1 {
		t.Errorf("expected one registered session, got %d", f.mgr.Count())
	}

	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	waitFor(t, func() bool { return f.mgr.Count() == 0 })
}

func TestPlayIntentWithoutSession(t *testing.T) {
	f := newPlayFixture(t, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(ctx, t, f.url)

	sendIntent(ctx, t, conn, "submit", "42")
	msg := readUntil(ctx, t, conn, ofType("error"))
	if msg.Error != "no_session" {
		t.Errorf("expected no_session, got %q", msg.Error)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	msg = readUntil(ctx, t, conn, ofType("error"))
	if msg.Error != "invalid_message" {
		t.Errorf("expected invalid_message, got %q", msg.Error)
	}
}

func TestPlayChatRateLimited(t *testing.T) {
	f := newPlayFixture(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(ctx, t, f.url)
	matchPartner(ctx, t, f, conn)

	sendIntent(ctx, t, conn, "chat", "hello partner")
	readUntil(ctx, t, conn, func(m serverMessage) bool {
		return m.Type == "session_event" && m.Event.Type == game.EventEntry &&
			m.Event.Entry.Sender == domain.SenderSelf
	})

	sendIntent(ctx, t, conn, "chat", "again")
	msg := readUntil(ctx, t, conn, ofType("error"))
	if msg.Error != "rate_limited" {
		t.Errorf("expected rate_limited, got %q", msg.Error)
	}
}

func TestPlayRestartStartsNewSession(t *testing.T) {
	f := newPlayFixture(t, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(ctx, t, f.url)
	first := matchPartner(ctx, t, f, conn)

	sendIntent(ctx, t, conn, "restart", "")
	second := matchPartner(ctx, t, f, conn)

	if second.SessionID == first.SessionID {
		t.Error("restart must create a new session")
	}
	if f.mgr.Count() != 1 {
		t.Errorf("expected only the new session to be registered, got %d", f.mgr.Count())
	}
}

func TestPlayRejectsForeignOrigin(t *testing.T) {
	h := NewPlayHandler(game.NewManager(), nil, nil, nil, "https://bq.example", false)

	req := httptest.NewRequest(http.MethodGet, "/ws/play", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}
