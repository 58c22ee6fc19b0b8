// Package matchmaking runs the staged partner search shown before a session.
package matchmaking

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/domain"
	"github.com/ashureev/bridgequest/internal/schedule"
)

// Status is one progress update of a search.
type Status struct {
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Lobby starts partner searches.
type Lobby struct {
	sched  schedule.Scheduler
	steps  []config.MatchStep
	reveal time.Duration
	roster []domain.PartnerProfile
	pick   func(n int) int
}

// NewLobby creates a Lobby over the configured roster. A nil pick draws
// uniformly at random.
func NewLobby(game config.Game, sched schedule.Scheduler, pick func(n int) int) *Lobby {
	if sched == nil {
		sched = schedule.Real{}
	}
	if pick == nil {
		pick = rand.IntN
	}
	return &Lobby{
		sched:  sched,
		steps:  game.Matchmaking.Steps,
		reveal: game.Matchmaking.RevealWait,
		roster: game.Partners,
		pick:   pick,
	}
}

// Search is a running partner search.
type Search struct {
	tasks *schedule.Group
}

// Start schedules the status steps and the final match. Callbacks run on the
// scheduler's goroutine.
func (l *Lobby) Start(onStatus func(Status), onMatch func(domain.PartnerProfile)) *Search {
	s := &Search{tasks: schedule.NewGroup(l.sched)}

	var last time.Duration
	for i, step := range l.steps {
		status := Status{Step: i + 1, Total: len(l.steps), Message: step.Message}
		s.tasks.AfterFunc(step.After, func() { onStatus(status) })
		last = max(last, step.After)
	}

	s.tasks.AfterFunc(last+l.reveal, func() {
		p := l.roster[l.pick(len(l.roster))]
		slog.Info("Partner matched", "partner", p.Name, "country", p.Country)
		onMatch(p)
	})
	return s
}

// Cancel stops every pending step of the search.
func (s *Search) Cancel() {
	s.tasks.StopAll()
}

// Done reports whether no steps remain pending.
func (s *Search) Done() bool {
	return s.tasks.Pending() == 0
}
