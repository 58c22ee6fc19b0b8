package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/bridgequest/internal/domain"
	"github.com/ashureev/bridgequest/internal/game"
	"github.com/ashureev/bridgequest/internal/identity"
	"github.com/ashureev/bridgequest/internal/matchmaking"
	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// SessionFactory builds a new idle game session for a user/tab.
type SessionFactory func(userID, tabID string) *game.Session

// PlayHandler bridges a WebSocket client to a matchmaking search and a game
// session.
type PlayHandler struct {
	sessions      *game.Manager
	lobby         *matchmaking.Lobby
	newSession    SessionFactory
	limiter       *RateLimiter
	allowedOrigin string
	isDev         bool
}

// NewPlayHandler creates a new play handler.
func NewPlayHandler(sessions *game.Manager, lobby *matchmaking.Lobby, newSession SessionFactory, limiter *RateLimiter, allowedOrigin string, isDev bool) *PlayHandler {
	return &PlayHandler{
		sessions:      sessions,
		lobby:         lobby,
		newSession:    newSession,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// clientMessage is an intent sent by the client.
type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// serverMessage is everything the server pushes to the client.
type serverMessage struct {
	Type      string                 `json:"type"`
	Status    *matchmaking.Status    `json:"status,omitempty"`
	Partner   *domain.PartnerProfile `json:"partner,omitempty"`
	SessionID string                 `json:"sessionId,omitempty"`
	Event     *game.Event            `json:"event,omitempty"`
	Snapshot  *game.Snapshot         `json:"snapshot,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *PlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	tabID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "tab_id", tabID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &playConn{h: h, ws: ws, ctx: ctx, userID: userID, tabID: tabID}
	defer c.teardown()

	c.beginMatch()
	c.inputLoop()
	slog.Info("Play session ended", "user_id", userID, "tab_id", tabID)
}

func (h *PlayHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// playConn is the per-connection state: at most one search or one session.
type playConn struct {
	h      *PlayHandler
	ws     *websocket.Conn
	ctx    context.Context
	userID string
	tabID  string

	mu       sync.Mutex
	closed   bool
	matchGen int
	search   *matchmaking.Search
	session  *game.Session
}

func (c *playConn) beginMatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.matchGen++
	gen := c.matchGen
	c.search = c.h.lobby.Start(
		func(st matchmaking.Status) {
			if c.currentGen() == gen {
				c.send(serverMessage{Type: "lobby_status", Status: &st})
			}
		},
		func(p domain.PartnerProfile) { c.matched(gen, p) },
	)
}

func (c *playConn) currentGen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchGen
}

func (c *playConn) matched(gen int, p domain.PartnerProfile) {
	c.mu.Lock()
	if c.closed || gen != c.matchGen || c.session != nil {
		c.mu.Unlock()
		return
	}
	s := c.h.newSession(c.userID, c.tabID)
	c.session = s
	c.search = nil
	c.h.sessions.Register(c.userID, c.tabID, s)
	c.mu.Unlock()

	c.send(serverMessage{Type: "match_found", Partner: &p, SessionID: s.ID()})
	go c.forward(s)
	if err := s.Start(p); err != nil {
		slog.Warn("Failed to start game session", "error", err, "user_id", c.userID)
		c.send(serverMessage{Type: "error", Error: "session_unavailable"})
	}
}

// forward relays session events until the session is closed.
func (c *playConn) forward(s *game.Session) {
	for ev := range s.Events() {
		c.send(serverMessage{Type: "session_event", SessionID: s.ID(), Event: &ev})
	}
}

func (c *playConn) current() *game.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *playConn) restart() {
	c.mu.Lock()
	old := c.session
	c.session = nil
	if c.search != nil {
		c.search.Cancel()
		c.search = nil
	}
	c.mu.Unlock()

	if old != nil {
		c.h.sessions.Unregister(c.userID, c.tabID, old)
		old.Close()
	}
	slog.Info("Game session restart requested", "user_id", c.userID, "tab_id", c.tabID)
	c.beginMatch()
}

func (c *playConn) teardown() {
	c.mu.Lock()
	c.closed = true
	s := c.session
	c.session = nil
	if c.search != nil {
		c.search.Cancel()
		c.search = nil
	}
	c.mu.Unlock()

	if s != nil {
		c.h.sessions.Unregister(c.userID, c.tabID, s)
		s.Close()
	}
}

func (c *playConn) inputLoop() {
	slog.Debug("Starting input loop", "user_id", c.userID)
	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", c.userID)
			} else {
				slog.Debug("WebSocket read ended", "error", err, "user_id", c.userID)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(serverMessage{Type: "error", Error: "invalid_message"})
			continue
		}
		c.dispatch(msg)
	}
}

func (c *playConn) dispatch(msg clientMessage) {
	switch msg.Type {
	case "ping":
		c.send(serverMessage{Type: "pong"})
		return
	case "restart":
		c.restart()
		return
	}

	s := c.current()
	if s == nil {
		c.send(serverMessage{Type: "error", Error: "no_session"})
		return
	}

	switch msg.Type {
	case "submit":
		s.SubmitAnswer(msg.Text)
	case "skip":
		s.SkipLevel()
	case "chat":
		if !c.h.limiter.Allow(c.userID) {
			slog.Warn("Chat rate limited", "user_id", c.userID)
			c.send(serverMessage{Type: "error", Error: "rate_limited"})
			return
		}
		s.SendChatMessage(msg.Text)
	case "snapshot":
		snap := s.Snapshot()
		c.send(serverMessage{Type: "snapshot", SessionID: s.ID(), Snapshot: &snap})
	default:
		c.send(serverMessage{Type: "error", Error: "unknown_intent"})
	}
}

func (c *playConn) send(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode message", "error", err, "type", msg.Type)
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil && c.ctx.Err() == nil {
		slog.Debug("WebSocket write error", "error", err, "user_id", c.userID)
	}
}
