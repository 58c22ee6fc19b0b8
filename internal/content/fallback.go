package content

import (
	"fmt"
	"time"

	"github.com/ashureev/bridgequest/internal/domain"
)

var fallbackPuzzles = []domain.Puzzle{
	{
		Type:        domain.PuzzleCultural,
		Title:       "Language Bridge Protocol",
		Description: "A phrase in your partner's language holds the key. Work together to decode it.",
		Difficulty:  1,
		SelfClues: []string{
			"You see a phrase: 'こんにちは'",
			"It uses Japanese characters",
			"Your partner knows what it means",
		},
		PartnerClues: []string{
			"The phrase means: 'Hello'",
			"It's a common greeting",
			"Pronunciation: Konnichiwa",
		},
		Solution: "Hello",
		Flavor:   `Entity["Language", "Japanese"]; Interpreter["CommonWords"]`,
	},
	{
		Type:        domain.PuzzleMaze,
		Title:       "Graph Navigation Challenge",
		Description: "A network of nodes requires path analysis. Find the shortest route.",
		Difficulty:  2,
		SelfClues: []string{
			"Node connections: A→B, A→C, B→D",
			"You need to reach node E",
			"Some paths have weights (costs)",
		},
		PartnerClues: []string{
			"Path weights: C→E (cost: 2), D→E (cost: 5)",
			"Node B→D has cost: 1",
			"Direct path A→E blocked",
		},
		Solution: "A-C-E",
		Flavor:   `GraphData["PetersenGraph"]; FindShortestPath[g, "A", "E"]`,
	},
	{
		Type:        domain.PuzzleCultural,
		Title:       "Unity Matrix: Find Common Ground",
		Description: "Two nations, seemingly different, share surprising similarities. Discover what connects them.",
		Difficulty:  3,
		SelfClues: []string{
			"Nation A: Archipelago in East Asia",
			"Nation A: Known for technology and tradition",
			"Nation A: Has an emperor",
		},
		PartnerClues: []string{
			"Nation B: Island nation in Europe",
			"Nation B: Has a constitutional monarchy",
			"Both nations: Are island nations with monarchies",
		},
		Solution: "island monarchy",
		Flavor:   `Intersection[EntityValue[Entity["Country", "Japan"], "Features"], EntityValue[Entity["Country", "UnitedKingdom"], "Features"]]`,
	},
	{
		Type:        domain.PuzzleLogic,
		Title:       "Fibonacci Convergence",
		Description: "Two sequences spiral toward unity. Calculate their intersection.",
		Difficulty:  4,
		SelfClues: []string{
			"Fibonacci sequence: 1, 1, 2, 3, 5, 8, 13...",
			"The 10th number is 55",
			"Looking for the 12th number",
		},
		PartnerClues: []string{
			"The 11th Fibonacci number is 89",
			"Formula: F(n) = F(n-1) + F(n-2)",
			"F(12) = F(11) + F(10)",
		},
		Solution: "144",
		Flavor:   "Fibonacci[12]; Table[Fibonacci[n], {n, 1, 15}]",
	},
}

// Fallback returns the canned puzzle for level. Levels past the end of the
// table reuse the last entry.
func Fallback(level int, now time.Time) domain.Puzzle {
	idx := min(max(level-1, 0), len(fallbackPuzzles)-1)
	p := fallbackPuzzles[idx]
	p.ID = fmt.Sprintf("mock-%d-%d", idx+1, now.UnixMilli())
	p.SelfClues = append([]string(nil), p.SelfClues...)
	p.PartnerClues = append([]string(nil), p.PartnerClues...)
	return p
}
