package content

import (
	"time"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/domain"
)

// Policy adjusts the requested puzzle difficulty from player performance.
type Policy struct {
	Max            int
	LowErrors      int
	HighErrors     int
	FastCompletion time.Duration
}

// PolicyFromConfig builds a Policy from the game difficulty settings.
func PolicyFromConfig(d config.Difficulty) Policy {
	return Policy{
		Max:            d.Max,
		LowErrors:      d.LowErrors,
		HighErrors:     d.HighErrors,
		FastCompletion: d.FastCompletion,
	}
}

// Adjust returns the difficulty to request for level. Strong play moves it
// up one step, heavy errors move it down one step, otherwise it stays at
// the level number.
func (p Policy) Adjust(level int, m *domain.PerformanceMetrics) int {
	if m == nil {
		return level
	}
	fastMillis := float64(p.FastCompletion / time.Millisecond)
	switch {
	case m.ErrorCount < p.LowErrors && m.AvgCompletionMillis < fastMillis:
		return min(p.Max, level+1)
	case m.ErrorCount > p.HighErrors:
		return max(1, level-1)
	default:
		return level
	}
}
