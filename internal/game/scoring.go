package game

import (
	"math"
	"strings"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/domain"
)

// ScoreRules are the tunables of the outcome calculation.
type ScoreRules struct {
	Budget          int
	SupportiveWords []string
	SkipPenalty     int
	FailedPenalty   int
	AllSolvedBonus  int
}

// RulesFromConfig builds ScoreRules from the game configuration.
func RulesFromConfig(g config.Game) ScoreRules {
	return ScoreRules{
		Budget:          g.SessionBudget,
		SupportiveWords: g.SupportiveWords,
		SkipPenalty:     g.Scoring.SkipPenalty,
		FailedPenalty:   g.Scoring.FailedPenalty,
		AllSolvedBonus:  g.Scoring.AllSolvedBonus,
	}
}

// ScoreInput is the session data the outcome is computed from.
type ScoreInput struct {
	Transcript    []domain.ChatEntry
	Levels        []domain.LevelStatus
	ErrorCount    int
	TimeRemaining int
}

// CalculateOutcome reduces a session into its UnityMetrics. It is a pure
// function of its inputs.
func CalculateOutcome(in ScoreInput, r ScoreRules) domain.UnityMetrics {
	var self, partner, supportive int
	for _, e := range in.Transcript {
		switch e.Sender {
		case domain.SenderSelf:
			self++
			if containsAny(e.Text, r.SupportiveWords) {
				supportive++
			}
		case domain.SenderPartner:
			partner++
		}
	}

	var solved, skipped, failed int
	for _, st := range in.Levels {
		switch st {
		case domain.LevelSolved:
			solved++
		case domain.LevelSkipped:
			skipped++
		case domain.LevelFailed:
			failed++
		}
	}
	penalty := skipped*r.SkipPenalty + failed*r.FailedPenalty

	bonus := 0
	if len(in.Levels) > 0 && solved == len(in.Levels) {
		bonus = r.AllSolvedBonus
	}

	collaboration := clamp(50, 100, (self+partner)*5)

	balance := float64(min(self, partner)) / float64(max(self, partner, 1))
	communication := clamp(60, 100, int(math.Round(balance*100)))

	empathy := clamp(70, 100, 80+5*supportive-2*in.ErrorCount)

	return domain.UnityMetrics{
		Collaboration: clamp(0, 100, collaboration-penalty+bonus),
		Empathy:       clamp(0, 100, empathy),
		Communication: clamp(0, 100, communication-penalty),
		TimeTaken:     r.Budget - in.TimeRemaining,
	}
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func clamp(lo, hi, v int) int {
	return max(lo, min(hi, v))
}
