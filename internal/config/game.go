package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ashureev/bridgequest/internal/domain"
	"gopkg.in/yaml.v3"
)

// Countdown expiry policies.
const (
	ExpireComplete = "complete"
	ExpireNone     = "none"
)

// LevelTheme names one level of the game.
type LevelTheme struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color,omitempty"`
}

// Phrase is a short greeting in a partner's language.
type Phrase struct {
	Phrase        string `yaml:"phrase"`
	Meaning       string `yaml:"meaning"`
	Pronunciation string `yaml:"pronunciation"`
}

// Timings holds every delay the session engine schedules.
type Timings struct {
	Tick          time.Duration `yaml:"tick"`
	GreetingDelay time.Duration `yaml:"greeting_delay"`
	ReplyDelay    time.Duration `yaml:"reply_delay"`
	ErrorDisplay  time.Duration `yaml:"error_display"`
}

// Difficulty holds the adaptive difficulty thresholds.
type Difficulty struct {
	Max            int           `yaml:"max"`
	LowErrors      int           `yaml:"low_errors"`
	HighErrors     int           `yaml:"high_errors"`
	FastCompletion time.Duration `yaml:"fast_completion"`
}

// Scoring holds the outcome penalties and bonuses.
type Scoring struct {
	SkipPenalty    int `yaml:"skip_penalty"`
	FailedPenalty  int `yaml:"failed_penalty"`
	AllSolvedBonus int `yaml:"all_solved_bonus"`
}

// MatchStep is one status line shown while searching for a partner.
type MatchStep struct {
	After   time.Duration `yaml:"after"`
	Message string        `yaml:"message"`
}

// Matchmaking configures the lobby sequence.
type Matchmaking struct {
	Steps      []MatchStep   `yaml:"steps"`
	RevealWait time.Duration `yaml:"reveal_wait"`
}

// Game is the tunable game content and pacing. It is passed to the
// engine at construction and never read from globals.
type Game struct {
	SessionBudget       int                     `yaml:"session_budget_seconds"`
	SelfCountry         string                  `yaml:"self_country"`
	ExpiryPolicy        string                  `yaml:"expiry_policy"`
	Levels              []LevelTheme            `yaml:"levels"`
	Partners            []domain.PartnerProfile `yaml:"partners"`
	SupportiveWords     []string                `yaml:"supportive_words"`
	Personalities       map[string]string       `yaml:"personalities"`
	DefaultPersonality  string                  `yaml:"default_personality"`
	CulturalPhrases     map[string][]Phrase     `yaml:"cultural_phrases"`
	CountrySimilarities map[string][]string     `yaml:"country_similarities"`
	Timings             Timings                 `yaml:"timings"`
	Difficulty          Difficulty              `yaml:"difficulty"`
	Scoring             Scoring                 `yaml:"scoring"`
	Matchmaking         Matchmaking             `yaml:"matchmaking"`
}

// DefaultGame returns the stock game configuration.
func DefaultGame() Game {
	return Game{
		SessionBudget: 300,
		SelfCountry:   "USA",
		ExpiryPolicy:  ExpireComplete,
		Levels: []LevelTheme{
			{Name: "Forest of Miscommunication", Color: "emerald"},
			{Name: "Bridge of Differences", Color: "indigo"},
			{Name: "Cave of Empathy", Color: "purple"},
			{Name: "Mountain of Unity", Color: "amber"},
		},
		Partners: []domain.PartnerProfile{
			{Name: "Aravind", Country: "India", Language: "Tamil", AvatarColor: "orange"},
			{Name: "Elena", Country: "Spain", Language: "Spanish", AvatarColor: "red"},
			{Name: "Kenji", Country: "Japan", Language: "Japanese", AvatarColor: "rose"},
			{Name: "Sarah", Country: "Canada", Language: "French", AvatarColor: "blue"},
			{Name: "Lars", Country: "Norway", Language: "Norwegian", AvatarColor: "cyan"},
		},
		SupportiveWords: []string{"thanks", "great", "good", "help", "together", "nice", "awesome", "perfect"},
		Personalities: map[string]string{
			"Japan":  "polite, thoughtful, precise",
			"Spain":  "warm, expressive, helpful",
			"India":  "enthusiastic, collaborative, insightful",
			"Canada": "friendly, patient, encouraging",
			"Norway": "direct, logical, supportive",
		},
		DefaultPersonality: "friendly, helpful",
		CulturalPhrases: map[string][]Phrase{
			"Japan": {
				{Phrase: "ありがとう", Meaning: "Thank you", Pronunciation: "Arigatou"},
				{Phrase: "こんにちは", Meaning: "Hello", Pronunciation: "Konnichiwa"},
				{Phrase: "おはよう", Meaning: "Good morning", Pronunciation: "Ohayou"},
			},
			"Spain": {
				{Phrase: "Gracias", Meaning: "Thank you", Pronunciation: "Grah-see-ahs"},
				{Phrase: "Hola", Meaning: "Hello", Pronunciation: "Oh-lah"},
				{Phrase: "Buenos días", Meaning: "Good morning", Pronunciation: "Bway-nohs dee-ahs"},
			},
			"India": {
				{Phrase: "நன்றி", Meaning: "Thank you", Pronunciation: "Nandri"},
				{Phrase: "வணக்கம்", Meaning: "Hello", Pronunciation: "Vanakkam"},
				{Phrase: "காலை வணக்கம்", Meaning: "Good morning", Pronunciation: "Kaalai Vanakkam"},
			},
			"Canada": {
				{Phrase: "Merci", Meaning: "Thank you", Pronunciation: "Mare-see"},
				{Phrase: "Bonjour", Meaning: "Hello", Pronunciation: "Bon-zhoor"},
				{Phrase: "Bonne journée", Meaning: "Have a good day", Pronunciation: "Bon zhoor-nay"},
			},
			"Norway": {
				{Phrase: "Takk", Meaning: "Thank you", Pronunciation: "Tahk"},
				{Phrase: "Hei", Meaning: "Hello", Pronunciation: "Hay"},
				{Phrase: "God morgen", Meaning: "Good morning", Pronunciation: "Goo mor-gen"},
			},
		},
		CountrySimilarities: map[string][]string{
			"Japan":  {"island nation", "monarchy", "advanced technology", "tea culture", "rice-based cuisine"},
			"Spain":  {"Mediterranean", "monarchy", "colonial history", "romance language", "wine culture"},
			"India":  {"democracy", "diverse languages", "ancient civilization", "spice trade", "cricket"},
			"Canada": {"commonwealth", "bilingual", "natural resources", "hockey", "vast territory"},
			"Norway": {"monarchy", "fjords", "Viking heritage", "oil rich", "winter sports"},
		},
		Timings: Timings{
			Tick:          time.Second,
			GreetingDelay: 1500 * time.Millisecond,
			ReplyDelay:    2 * time.Second,
			ErrorDisplay:  3 * time.Second,
		},
		Difficulty: Difficulty{
			Max:            10,
			LowErrors:      2,
			HighErrors:     5,
			FastCompletion: 60 * time.Second,
		},
		Scoring: Scoring{
			SkipPenalty:    10,
			FailedPenalty:  10,
			AllSolvedBonus: 10,
		},
		Matchmaking: Matchmaking{
			Steps: []MatchStep{
				{After: 1000 * time.Millisecond, Message: "Analyzing puzzle skill via SkillAssessment[]..."},
				{After: 3000 * time.Millisecond, Message: "Scanning global nodes for compatible partners..."},
				{After: 4500 * time.Millisecond, Message: "Optimizing for cultural distance (Unity Protocol)..."},
				{After: 6000 * time.Millisecond, Message: "Match Found!"},
			},
			RevealWait: time.Second,
		},
	}
}

// LoadGame reads a YAML game file layered over DefaultGame.
func LoadGame(path string) (Game, error) {
	g := DefaultGame()
	if path == "" {
		return g, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Game{}, fmt.Errorf("failed to read game config: %w", err)
	}
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Game{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Game{}, fmt.Errorf("invalid game config %s: %w", path, err)
	}
	return g, nil
}

// Validate checks the game configuration for values the engine cannot run with.
func (g *Game) Validate() error {
	if g.SessionBudget <= 0 {
		return fmt.Errorf("session_budget_seconds must be > 0")
	}
	if len(g.Levels) == 0 {
		return fmt.Errorf("at least one level is required")
	}
	if len(g.Partners) == 0 {
		return fmt.Errorf("at least one partner is required")
	}
	switch g.ExpiryPolicy {
	case ExpireComplete, ExpireNone:
	default:
		return fmt.Errorf("unknown expiry_policy %q", g.ExpiryPolicy)
	}
	if g.Timings.Tick <= 0 {
		return fmt.Errorf("timings.tick must be > 0")
	}
	if g.Difficulty.Max < 1 {
		return fmt.Errorf("difficulty.max must be >= 1")
	}
	return nil
}

// LevelCount returns the number of configured levels.
func (g *Game) LevelCount() int {
	return len(g.Levels)
}

// Personality returns the configured personality for a partner country.
func (g *Game) Personality(country string) string {
	if p, ok := g.Personalities[country]; ok {
		return p
	}
	return g.DefaultPersonality
}
