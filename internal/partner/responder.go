// Package partner voices the simulated puzzle partner.
package partner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/domain"
)

const (
	// Filler is said when the model cannot be reached.
	Filler = "Connection unstable..."
	// historyWindow is how many recent turns the model sees.
	historyWindow = 6
)

// GreetingTurn is the synthetic history used for the opening line of a level.
var GreetingTurn = domain.HistoryTurn{Role: domain.RoleSystem, Text: "The game has started. Greet your partner."}

// TextGenerator produces free-form text.
type TextGenerator interface {
	Text(ctx context.Context, prompt string) (string, error)
}

// Request is everything needed for one partner line.
type Request struct {
	History []domain.HistoryTurn
	// Puzzle is nil when no level is loaded yet.
	Puzzle  *domain.Puzzle
	Partner domain.PartnerProfile
}

// Responder produces partner dialogue.
type Responder struct {
	gen  TextGenerator
	game config.Game
	log  *slog.Logger
}

// NewResponder creates a Responder. A nil gen makes it answer with
// deterministic offline lines.
func NewResponder(gen TextGenerator, game config.Game, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{gen: gen, game: game, log: logger}
}

// Reply returns one in-character line. It never fails.
func (r *Responder) Reply(ctx context.Context, req Request) string {
	if req.Puzzle == nil {
		return Filler
	}
	if r.gen == nil {
		return offlineLine(req)
	}

	text, err := r.gen.Text(ctx, r.buildPrompt(req))
	if err != nil {
		r.log.Warn("Partner reply failed", "partner", req.Partner.Name, "error", err)
		return Filler
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "..."
	}
	if !isGreeting(req) && revealsSolution(text, req.Puzzle.Solution) {
		r.log.Info("Partner reply leaked the solution, replacing", "partner", req.Partner.Name, "puzzle_id", req.Puzzle.ID)
		return nudge(req)
	}
	return text
}

func (r *Responder) buildPrompt(req Request) string {
	clues, _ := json.Marshal(req.Puzzle.PartnerClues)

	var b strings.Builder
	fmt.Fprintf(&b, "You are roleplaying as %s from %s.\n", req.Partner.Name, req.Partner.Country)
	fmt.Fprintf(&b, "Your personality: %s\n\n", r.game.Personality(req.Partner.Country))
	b.WriteString("You are playing BridgeQuest with a partner (the user).\n\n")
	fmt.Fprintf(&b, "Current puzzle: %s (type: %s)\n", req.Puzzle.Title, req.Puzzle.Type)
	fmt.Fprintf(&b, "Your hidden clues (only you see these): %s\n", clues)
	fmt.Fprintf(&b, "The solution (never say it outright): %s\n\n", req.Puzzle.Solution)
	b.WriteString(`Strategy:
- If they ask about your clues, share 1-2 of them naturally, not all at once.
- If they share their clues, acknowledge them and connect them with yours.
- Guide them toward the solution by asking questions too.
- Be encouraging and collaborative.
- Keep responses under 40 words.

Chat history:
`)
	for _, turn := range recent(req.History, historyWindow) {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
	}
	fmt.Fprintf(&b, "\nRespond as %s:", req.Partner.Name)
	return b.String()
}

func recent(history []domain.HistoryTurn, n int) []domain.HistoryTurn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// revealsSolution reports whether text contains the solution as a whole
// phrase. Very short solutions are only matched as separate words.
func revealsSolution(text, solution string) bool {
	sol := domain.NormalizeAnswer(solution)
	if sol == "" {
		return false
	}
	lower := strings.ToLower(text)
	if !strings.Contains(lower, sol) {
		return false
	}
	for _, field := range strings.FieldsFunc(lower, isSeparator) {
		if field == sol {
			return true
		}
	}
	return strings.Contains(sol, " ") || strings.ContainsAny(sol, "-")
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', ',', '.', '!', '?', ';', ':', '"', '\'', '(', ')':
		return true
	}
	return false
}

func offlineLine(req Request) string {
	clue := "the puzzle"
	if len(req.Puzzle.PartnerClues) > 0 {
		clue = req.Puzzle.PartnerClues[0]
	}
	return fmt.Sprintf("(Mock) %s: I think we need to combine my clue about %s with yours.", req.Partner.Name, clue)
}

// isGreeting reports whether req asks for the opening line of a level.
// Greetings are not checked for the solution: a short answer such as
// "Hello" is also how most greetings start.
func isGreeting(req Request) bool {
	return len(req.History) == 1 && req.History[0] == GreetingTurn
}

func nudge(req Request) string {
	clue := "my notes"
	for _, c := range req.Puzzle.PartnerClues {
		if !revealsSolution(c, req.Puzzle.Solution) {
			clue = c
			break
		}
	}
	return fmt.Sprintf("Let's work it out together. Here is one of my clues: %s. What do yours say?", clue)
}
