// Package domain holds the data types shared by the game engine, the
// content providers and the HTTP layer.
package domain

import (
	"time"
)

// Phase is the coarse state of a play session.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseActive   Phase = "active"
	PhaseComplete Phase = "complete"
	PhaseClosed   Phase = "closed"
)

// Terminal reports whether no further game transitions can happen.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseClosed
}

// LevelStatus tracks the progress of a single level.
type LevelStatus string

const (
	LevelLocked  LevelStatus = "locked"
	LevelActive  LevelStatus = "active"
	LevelSolved  LevelStatus = "solved"
	LevelSkipped LevelStatus = "skipped"
	LevelFailed  LevelStatus = "failed"
)

// Terminal reports whether the level has been finished one way or another.
func (s LevelStatus) Terminal() bool {
	return s == LevelSolved || s == LevelSkipped || s == LevelFailed
}

// Sender identifies who wrote a transcript entry.
type Sender string

const (
	SenderSelf    Sender = "self"
	SenderPartner Sender = "partner"
	SenderSystem  Sender = "system"
)

// ChatEntry is one line in the session transcript.
type ChatEntry struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryRole is the role tag used when replaying the transcript to a model.
type HistoryRole string

const (
	RoleUser   HistoryRole = "user"
	RoleModel  HistoryRole = "model"
	RoleSystem HistoryRole = "system"
)

// HistoryTurn is one role-tagged line of chat history.
type HistoryTurn struct {
	Role HistoryRole `json:"role"`
	Text string      `json:"text"`
}

// RoleFor maps a transcript sender to its history role.
func RoleFor(s Sender) HistoryRole {
	switch s {
	case SenderSelf:
		return RoleUser
	case SenderPartner:
		return RoleModel
	default:
		return RoleSystem
	}
}

// PartnerProfile describes the simulated partner. Fixed at matchmaking.
type PartnerProfile struct {
	Name        string `json:"name" yaml:"name"`
	Country     string `json:"country" yaml:"country"`
	Language    string `json:"language" yaml:"language"`
	AvatarColor string `json:"avatarColor,omitempty" yaml:"avatar_color"`
}

// PerformanceMetrics summarizes how the player has done so far.
type PerformanceMetrics struct {
	ErrorCount int `json:"errorCount"`
	// AvgCompletionMillis is the mean completion time of solved levels.
	AvgCompletionMillis float64 `json:"avgCompletionTime"`
	ChatActivity        int     `json:"chatActivity"`
}

// UnityMetrics is the final outcome of a session.
type UnityMetrics struct {
	Collaboration int `json:"collaboration"`
	Empathy       int `json:"empathy"`
	Communication int `json:"communication"`
	TimeTaken     int `json:"timeTaken"`
}
