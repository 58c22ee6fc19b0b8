package content

import (
	"fmt"
	"strings"

	"github.com/ashureev/bridgequest/internal/domain"
)

var typeInstructions = map[domain.PuzzleType]string{
	domain.PuzzleCultural: `Create a puzzle about {country} culture or geography.
Include a phrase in {country}'s language that the player must identify or translate,
or a "find common features" task between two countries.
Good topics: capital city, greetings, traditions, currency, landmarks, shared traits.`,
	domain.PuzzleMaze: `Create a GRAPH THEORY puzzle over nodes A to F.
The player sees some edges, the partner sees the others (and any path weights).
Use notation like "Node A connects to: B, C" or "Path weights: AB=3, BC=5".
The solution is a shortest path such as "A-C-E" or a single node.`,
	domain.PuzzleLogic: `Create a mathematical or logical sequence puzzle.
Good topics: Fibonacci, primes, pattern recognition, arithmetic sequences.`,
}

func (p *Provider) buildPrompt(req Request, typ domain.PuzzleType, difficulty int, query, fact string) string {
	var b strings.Builder

	b.WriteString("Act as the engine for \"BridgeQuest\", a cooperative puzzle game.\n")
	fmt.Fprintf(&b, "Generate a puzzle for a player from %s paired with a partner from %s.\n\n", req.SelfCountry, req.PartnerCountry)
	fmt.Fprintf(&b, "Level: %d of %d\n", req.Level, p.game.LevelCount())
	fmt.Fprintf(&b, "Adaptive difficulty: %d (1-%d, adjusted from player performance)\n", difficulty, p.policy.Max)
	fmt.Fprintf(&b, "Puzzle type: %s\n", typ)
	b.WriteString(strings.ReplaceAll(typeInstructions[typ], "{country}", req.PartnerCountry))
	b.WriteString("\n\n")

	if typ == domain.PuzzleCultural {
		p.writeCulturalHints(&b, req)
	}

	if fact != "" {
		fmt.Fprintf(&b, "REAL DATA FROM WOLFRAM ALPHA: %q returned %q. USE THIS FACT AS THE SOLUTION OR A KEY CLUE.\n\n", query, fact)
	} else {
		fmt.Fprintf(&b, "(No live data available, generate realistic data for a %s puzzle.)\n\n", typ)
	}

	b.WriteString(`The puzzle MUST be cooperative:
- playerClues: information ONLY the player can see
- partnerClues: information ONLY the partner can see, never repeating a player clue
- Neither side can solve it alone; the solution needs clues from BOTH sides.
- solution: the exact answer string, compared case-insensitively.
- wolframContext: a short Wolfram Language snippet related to the puzzle.
`)
	return b.String()
}

func (p *Provider) writeCulturalHints(b *strings.Builder, req Request) {
	if phrases := p.game.CulturalPhrases[req.PartnerCountry]; len(phrases) > 0 {
		b.WriteString("Known phrases you may use:\n")
		for _, ph := range phrases {
			fmt.Fprintf(b, "- %s (%s, means %q)\n", ph.Phrase, ph.Pronunciation, ph.Meaning)
		}
	}
	if traits := p.game.CountrySimilarities[req.PartnerCountry]; len(traits) > 0 {
		fmt.Fprintf(b, "Notable traits of %s: %s\n", req.PartnerCountry, strings.Join(traits, ", "))
	}
	b.WriteString("\n")
}
