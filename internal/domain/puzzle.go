package domain

import "strings"

// PuzzleType is the kind of cooperative puzzle served for a level.
type PuzzleType string

const (
	PuzzleLogic    PuzzleType = "logic"
	PuzzleCultural PuzzleType = "cultural"
	PuzzleMaze     PuzzleType = "maze"
)

// Valid reports whether t is one of the known puzzle types.
func (t PuzzleType) Valid() bool {
	switch t {
	case PuzzleLogic, PuzzleCultural, PuzzleMaze:
		return true
	}
	return false
}

// Puzzle is a complete puzzle record. It is never mutated once built.
// PartnerClues and Solution must not leave the server; use View for that.
type Puzzle struct {
	ID           string     `json:"id"`
	Type         PuzzleType `json:"type"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Difficulty   int        `json:"difficulty"`
	SelfClues    []string   `json:"playerClues"`
	PartnerClues []string   `json:"partnerClues"`
	Solution     string     `json:"solution"`
	Flavor       string     `json:"wolframContext"`
}

// PuzzleView is the part of a puzzle the local player is allowed to see.
type PuzzleView struct {
	ID          string     `json:"id"`
	Type        PuzzleType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  int        `json:"difficulty"`
	Clues       []string   `json:"clues"`
	Flavor      string     `json:"flavor,omitempty"`
}

// View returns the player-facing projection of the puzzle.
func (p *Puzzle) View() PuzzleView {
	return PuzzleView{
		ID:          p.ID,
		Type:        p.Type,
		Title:       p.Title,
		Description: p.Description,
		Difficulty:  p.Difficulty,
		Clues:       append([]string(nil), p.SelfClues...),
		Flavor:      p.visibleFlavor(),
	}
}

// visibleFlavor hides flavor text that would give the answer away.
func (p *Puzzle) visibleFlavor() string {
	sol := NormalizeAnswer(p.Solution)
	if sol != "" && strings.Contains(strings.ToLower(p.Flavor), sol) {
		return ""
	}
	return p.Flavor
}

// CheckAnswer compares an answer to the solution, ignoring case and
// surrounding whitespace.
func (p *Puzzle) CheckAnswer(answer string) bool {
	return NormalizeAnswer(answer) == NormalizeAnswer(p.Solution)
}

// NormalizeAnswer trims and case-folds an answer for comparison.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
