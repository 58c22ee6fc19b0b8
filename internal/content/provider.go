// Package content produces puzzles for each level. Puzzles come from the
// generative model when it is configured and fall back to a fixed local
// table otherwise.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/domain"
	"google.golang.org/genai"
)

// ErrInvalidPuzzle is returned when generated content breaks a puzzle rule.
var ErrInvalidPuzzle = errors.New("invalid puzzle")

// Request describes the puzzle wanted for one level.
type Request struct {
	Level          int
	PartnerCountry string
	SelfCountry    string
	// Metrics is nil for the first level.
	Metrics *domain.PerformanceMetrics
}

// Generator produces JSON constrained by a schema.
type Generator interface {
	JSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// FactSource looks up short real-world facts.
type FactSource interface {
	Enabled() bool
	FirstAnswer(ctx context.Context, queries ...string) (query, answer string, err error)
}

// Options holds the optional collaborators of a Provider.
type Options struct {
	Generator Generator
	Facts     FactSource
	Logger    *slog.Logger
	Now       func() time.Time
}

// Provider builds puzzles. Generate never fails.
type Provider struct {
	gen    Generator
	facts  FactSource
	policy Policy
	game   config.Game
	log    *slog.Logger
	now    func() time.Time
}

// NewProvider creates a Provider for the given game configuration.
func NewProvider(game config.Game, opts Options) *Provider {
	p := &Provider{
		gen:    opts.Generator,
		facts:  opts.Facts,
		policy: PolicyFromConfig(game.Difficulty),
		game:   game,
		log:    opts.Logger,
		now:    opts.Now,
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// TypeForLevel returns the puzzle type served at level.
func TypeForLevel(level int) domain.PuzzleType {
	switch level {
	case 1, 3:
		return domain.PuzzleCultural
	case 2:
		return domain.PuzzleMaze
	default:
		return domain.PuzzleLogic
	}
}

// Generate returns a puzzle for req, falling back to the local table on
// any failure.
func (p *Provider) Generate(ctx context.Context, req Request) domain.Puzzle {
	if p.gen == nil {
		return Fallback(req.Level, p.now())
	}

	puzzle, err := p.generate(ctx, req)
	if err != nil {
		p.log.Warn("Puzzle generation failed, using fallback", "level", req.Level, "error", err)
		return Fallback(req.Level, p.now())
	}
	return puzzle
}

func (p *Provider) generate(ctx context.Context, req Request) (domain.Puzzle, error) {
	typ := TypeForLevel(req.Level)
	difficulty := p.policy.Adjust(req.Level, req.Metrics)
	query, fact := p.lookupFact(ctx, req)

	prompt := p.buildPrompt(req, typ, difficulty, query, fact)
	raw, err := p.gen.JSON(ctx, prompt, puzzleSchema())
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("generate puzzle: %w", err)
	}

	var g generatedPuzzle
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return domain.Puzzle{}, fmt.Errorf("decode puzzle: %w", err)
	}

	puzzle := domain.Puzzle{
		ID:           strings.TrimSpace(g.ID),
		Type:         domain.PuzzleType(strings.ToLower(strings.TrimSpace(g.Type))),
		Title:        strings.TrimSpace(g.Title),
		Description:  strings.TrimSpace(g.Description),
		Difficulty:   int(g.Difficulty),
		SelfClues:    trimAll(g.PlayerClues),
		PartnerClues: trimAll(g.PartnerClues),
		Solution:     strings.TrimSpace(g.Solution),
		Flavor:       g.WolframContext,
	}
	if err := Validate(&puzzle); err != nil {
		return domain.Puzzle{}, err
	}

	if puzzle.ID == "" {
		puzzle.ID = fmt.Sprintf("gen-%d-%d", req.Level, p.now().UnixMilli())
	}
	if puzzle.Difficulty <= 0 {
		puzzle.Difficulty = difficulty
	}
	if fact != "" {
		puzzle.Flavor = fmt.Sprintf("WolframAlpha[%q] -> %q\n", query, fact) + puzzle.Flavor
	}
	return puzzle, nil
}

// lookupFact asks the fact source for something true to build the puzzle
// around. Failures are logged and ignored.
func (p *Provider) lookupFact(ctx context.Context, req Request) (string, string) {
	if p.facts == nil || !p.facts.Enabled() {
		return "", ""
	}
	query, answer, err := p.facts.FirstAnswer(ctx, FactQueries(req)...)
	if err != nil {
		p.log.Debug("No fact available for level", "level", req.Level, "error", err)
		return "", ""
	}
	return query, answer
}

// FactQueries returns the fact lookups for a level, in preference order.
func FactQueries(req Request) []string {
	switch req.Level {
	case 1:
		return []string{"capital of " + req.PartnerCountry}
	case 2:
		return []string{"Petersen graph number of vertices"}
	case 3:
		return []string{
			fmt.Sprintf("%s and %s common language families", req.SelfCountry, req.PartnerCountry),
			fmt.Sprintf("distance between %s and %s", req.SelfCountry, req.PartnerCountry),
			fmt.Sprintf("%s %s similar cuisine", req.SelfCountry, req.PartnerCountry),
		}
	default:
		return []string{fmt.Sprintf("%dth Fibonacci number", req.Level)}
	}
}

// Validate checks the structural rules every served puzzle must satisfy.
func Validate(p *domain.Puzzle) error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPuzzle, p.Type)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidPuzzle)
	}
	if domain.NormalizeAnswer(p.Solution) == "" {
		return fmt.Errorf("%w: empty solution", ErrInvalidPuzzle)
	}
	if len(p.SelfClues) == 0 || len(p.PartnerClues) == 0 {
		return fmt.Errorf("%w: both clue sets must be non-empty", ErrInvalidPuzzle)
	}

	seen := make(map[string]struct{}, len(p.SelfClues))
	for _, c := range p.SelfClues {
		if c == "" {
			return fmt.Errorf("%w: blank player clue", ErrInvalidPuzzle)
		}
		seen[domain.NormalizeAnswer(c)] = struct{}{}
	}
	for _, c := range p.PartnerClues {
		if c == "" {
			return fmt.Errorf("%w: blank partner clue", ErrInvalidPuzzle)
		}
		if _, dup := seen[domain.NormalizeAnswer(c)]; dup {
			return fmt.Errorf("%w: clue %q given to both players", ErrInvalidPuzzle, c)
		}
	}
	return nil
}

type generatedPuzzle struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Difficulty     float64  `json:"difficulty"`
	PlayerClues    []string `json:"playerClues"`
	PartnerClues   []string `json:"partnerClues"`
	Solution       string   `json:"solution"`
	WolframContext string   `json:"wolframContext"`
}

func puzzleSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":             str,
			"type":           {Type: genai.TypeString, Enum: []string{"logic", "cultural", "maze"}},
			"title":          str,
			"description":    str,
			"difficulty":     {Type: genai.TypeNumber},
			"playerClues":    {Type: genai.TypeArray, Items: str},
			"partnerClues":   {Type: genai.TypeArray, Items: str},
			"solution":       str,
			"wolframContext": str,
		},
		Required: []string{"id", "type", "title", "description", "playerClues", "partnerClues", "solution"},
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
