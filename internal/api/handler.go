// Package api provides the HTTP and WebSocket handlers for BridgeQuest.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/go-chi/chi/v5"
)

// Handler serves the read-only REST endpoints.
type Handler struct {
	game     config.Game
	features Features
}

// Features reports which optional collaborators are configured.
type Features struct {
	GenerativeModel string `json:"generativeModel,omitempty"`
	LiveFacts       bool   `json:"liveFacts"`
}

// NewHandler creates a new Handler.
func NewHandler(game config.Game, features Features) *Handler {
	return &Handler{
		game:     game,
		features: features,
	}
}

// RegisterRoutes mounts the REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GameConfig)
}

type levelInfo struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type gameConfigResponse struct {
	SessionBudget int         `json:"sessionBudgetSeconds"`
	ExpiryPolicy  string      `json:"expiryPolicy"`
	Levels        []levelInfo `json:"levels"`
	Features      Features    `json:"features"`
}

// GameConfig returns the level themes and session budget for presentation.
func (h *Handler) GameConfig(w http.ResponseWriter, _ *http.Request) {
	levels := make([]levelInfo, 0, len(h.game.Levels))
	for i, l := range h.game.Levels {
		levels = append(levels, levelInfo{Level: i + 1, Name: l.Name, Color: l.Color})
	}
	JSON(w, http.StatusOK, gameConfigResponse{
		SessionBudget: h.game.SessionBudget,
		ExpiryPolicy:  h.game.ExpiryPolicy,
		Levels:        levels,
		Features:      h.features,
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
