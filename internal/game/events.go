package game

import (
	"fmt"
	"time"

	"github.com/ashureev/bridgequest/internal/domain"
	"github.com/google/uuid"
)

// EventType identifies a session event.
type EventType string

const (
	EventState          EventType = "state"
	EventEntry          EventType = "entry"
	EventPuzzle         EventType = "puzzle"
	EventTick           EventType = "tick"
	EventAnswerRejected EventType = "answer_rejected"
	EventErrorCleared   EventType = "error_cleared"
	EventComplete       EventType = "complete"
	EventKernel         EventType = "kernel_log"
)

// Event is an observable change of a session. Only the fields relevant to
// Type are set.
type Event struct {
	Type          EventType            `json:"type"`
	Phase         domain.Phase         `json:"phase,omitempty"`
	Level         int                  `json:"level,omitempty"`
	Levels        []domain.LevelStatus `json:"levels,omitempty"`
	TimeRemaining int                  `json:"timeRemaining"`
	Entry         *domain.ChatEntry    `json:"entry,omitempty"`
	Puzzle        *domain.PuzzleView   `json:"puzzle,omitempty"`
	Message       string               `json:"message,omitempty"`
	Outcome       *domain.UnityMetrics `json:"outcome,omitempty"`
}

// Snapshot is a consistent copy of a session's observable state.
type Snapshot struct {
	ID            string                `json:"id"`
	Phase         domain.Phase          `json:"phase"`
	Level         int                   `json:"level"`
	LevelCount    int                   `json:"levelCount"`
	Levels        []domain.LevelStatus  `json:"levels"`
	TimeRemaining int                   `json:"timeRemaining"`
	ErrorCount    int                   `json:"errorCount"`
	ErrorMessage  string                `json:"errorMessage,omitempty"`
	Partner       domain.PartnerProfile `json:"partner"`
	Puzzle        *domain.PuzzleView    `json:"puzzle,omitempty"`
	Transcript    []domain.ChatEntry    `json:"transcript"`
	KernelLog     []string              `json:"kernelLog,omitempty"`
	Outcome       *domain.UnityMetrics  `json:"outcome,omitempty"`
}

// entryIDs issues transcript IDs that stay unique within a session even
// when several entries share a millisecond.
type entryIDs struct {
	seq uint64
}

func (g *entryIDs) next(now time.Time) string {
	g.seq++
	return fmt.Sprintf("%d-%d-%s", now.UnixMilli(), g.seq, uuid.NewString()[:8])
}
