// Package game implements the cooperative puzzle session: level progression,
// the countdown, the transcript, partner replies and the final outcome.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/bridgequest/internal/chatlog"
	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/content"
	"github.com/ashureev/bridgequest/internal/domain"
	"github.com/ashureev/bridgequest/internal/partner"
	"github.com/ashureev/bridgequest/internal/schedule"
	"github.com/google/uuid"
)

var (
	// ErrSessionStarted is returned by Start on a session that already started.
	ErrSessionStarted = errors.New("session already started")

	// ErrSessionClosed is returned by Start after Close.
	ErrSessionClosed = errors.New("session closed")
)

const (
	incorrectMessage = "Incorrect. Consult your partner."
	solvedMessage    = "Puzzle Solved! Unity connection strengthening..."
	skippedMessage   = "Puzzle Skipped. Advancing to next sector..."
	expiredMessage   = "Time's up! Uplink terminated."

	defaultEventBuffer = 256
	kernelLogLimit     = 50
)

// PuzzleSource produces the puzzle for a level. It must always return a
// usable puzzle.
type PuzzleSource interface {
	Generate(ctx context.Context, req content.Request) domain.Puzzle
}

// PartnerVoice produces the partner's next chat line.
type PartnerVoice interface {
	Reply(ctx context.Context, req partner.Request) string
}

// AnswerResult is the outcome of SubmitAnswer.
type AnswerResult int

const (
	AnswerIgnored AnswerResult = iota
	AnswerCorrect
	AnswerIncorrect
)

func (r AnswerResult) String() string {
	switch r {
	case AnswerCorrect:
		return "correct"
	case AnswerIncorrect:
		return "incorrect"
	}
	return "ignored"
}

// Deps are the collaborators of a Session.
type Deps struct {
	Game        config.Game
	Puzzles     PuzzleSource
	Voice       PartnerVoice
	Scheduler   schedule.Scheduler
	Recorder    chatlog.Logger
	Logger      *slog.Logger
	Now         func() time.Time
	EventBuffer int
}

// Session is one play-through. All methods are safe for concurrent use.
type Session struct {
	id      string
	userID  string
	game    config.Game
	rules   ScoreRules
	puzzles PuzzleSource
	voice   PartnerVoice
	tasks   *schedule.Group
	rec     chatlog.Logger
	log     *slog.Logger
	now     func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu            sync.Mutex
	closed        bool
	phase         domain.Phase
	partner       domain.PartnerProfile
	level         int
	generation    uint64
	timeRemaining int
	levels        []domain.LevelStatus
	startedAt     []time.Time
	completion    []time.Duration
	errorCount    int
	errorMessage  string
	errorTimer    schedule.Timer
	transcript    []domain.ChatEntry
	kernel        *kernelLog
	puzzle        *domain.Puzzle
	outcome       *domain.UnityMetrics
	lastActivity  time.Time
	ids           entryIDs
	events        chan Event
}

// NewSession creates an idle session. An empty id is replaced by a random one.
func NewSession(deps Deps, userID, id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = schedule.Real{}
	}
	if deps.Recorder == nil {
		deps.Recorder = chatlog.Noop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.EventBuffer <= 0 {
		deps.EventBuffer = defaultEventBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      id,
		userID:  userID,
		game:    deps.Game,
		rules:   RulesFromConfig(deps.Game),
		puzzles: deps.Puzzles,
		voice:   deps.Voice,
		tasks:   schedule.NewGroup(deps.Scheduler),
		rec:     deps.Recorder,
		log:     deps.Logger.With("session_id", id, "user_id", userID),
		now:     deps.Now,
		ctx:     ctx,
		cancel:  cancel,
		phase:   domain.PhaseIdle,
		kernel:  newKernelLog(kernelLogLimit),
		events:  make(chan Event, deps.EventBuffer),
	}
	s.lastActivity = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// Events returns the event stream. It is closed by Close. Events are dropped
// when the consumer falls behind; Snapshot always reflects the full state.
func (s *Session) Events() <-chan Event { return s.events }

// LastActivity returns the time of the last player action.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Start begins level 1 with the given partner and starts the countdown.
func (s *Session) Start(p domain.PartnerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.phase != domain.PhaseIdle {
		return ErrSessionStarted
	}

	n := s.game.LevelCount()
	s.partner = p
	s.levels = make([]domain.LevelStatus, n)
	for i := range s.levels {
		s.levels[i] = domain.LevelLocked
	}
	s.startedAt = make([]time.Time, n)
	s.completion = make([]time.Duration, n)
	s.timeRemaining = s.game.SessionBudget
	s.lastActivity = s.now()

	s.log.Info("Game session started", "partner", p.Name, "country", p.Country, "levels", n)
	s.kernelLocked(fmt.Sprintf(`NotebookDirectory[] -> "/BridgeQuest/Sessions/%s"`, p.Country))
	s.kernelLocked(fmt.Sprintf("CloudConnect[%q]", p.Name))

	s.tasks.Every(s.game.Timings.Tick, s.Tick)
	s.enterLevelLocked(1, nil)
	return nil
}

// Tick advances the countdown by one second.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase == domain.PhaseIdle || s.phase.Terminal() || s.timeRemaining == 0 {
		return
	}
	s.timeRemaining--
	s.emitLocked(Event{Type: EventTick, TimeRemaining: s.timeRemaining})

	if s.timeRemaining == 0 && s.game.ExpiryPolicy == config.ExpireComplete {
		s.expireLocked()
	}
}

// SubmitAnswer checks text against the active puzzle.
func (s *Session) SubmitAnswer(text string) AnswerResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != domain.PhaseActive || s.puzzle == nil {
		return AnswerIgnored
	}
	answer := strings.TrimSpace(text)
	if answer == "" {
		return AnswerIgnored
	}
	s.lastActivity = s.now()
	s.kernelLocked(fmt.Sprintf("VerifySolution[%q]", answer))

	if s.puzzle.CheckAnswer(answer) {
		idx := s.level - 1
		s.completion[idx] = s.now().Sub(s.startedAt[idx])
		s.levels[idx] = domain.LevelSolved
		s.kernelLocked(`Success["PatternMatched"]`)
		s.appendLocked(domain.SenderSystem, solvedMessage)
		s.log.Info("Puzzle solved", "level", s.level, "elapsed", s.completion[idx])
		s.advanceLocked()
		return AnswerCorrect
	}

	s.errorCount++
	s.errorMessage = incorrectMessage
	s.kernelLocked(`Error["Mismatch"]`)
	s.emitLocked(Event{Type: EventAnswerRejected, Level: s.level, Message: incorrectMessage, TimeRemaining: s.timeRemaining})

	if s.errorTimer != nil {
		s.errorTimer.Stop()
	}
	s.errorTimer = s.tasks.AfterFunc(s.game.Timings.ErrorDisplay, s.clearError)
	return AnswerIncorrect
}

// SkipLevel abandons the active level. It returns false when nothing is active.
func (s *Session) SkipLevel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != domain.PhaseActive || s.puzzle == nil {
		return false
	}
	s.lastActivity = s.now()
	s.levels[s.level-1] = domain.LevelSkipped
	s.kernelLocked("AbortKernels[]; NextLevel[]")
	s.appendLocked(domain.SenderSystem, skippedMessage)
	s.log.Info("Puzzle skipped", "level", s.level)
	s.advanceLocked()
	return true
}

// SendChatMessage appends a player message and schedules the partner reply.
// It is a no-op while no puzzle is loaded.
func (s *Session) SendChatMessage(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.puzzle == nil || s.phase.Terminal() {
		return false
	}
	msg := strings.TrimSpace(text)
	if msg == "" {
		return false
	}
	s.lastActivity = s.now()

	// The reply is about the puzzle on screen when the message was sent.
	puzzle := *s.puzzle
	history := append(s.historyLocked(), domain.HistoryTurn{Role: domain.RoleUser, Text: msg})
	s.appendLocked(domain.SenderSelf, msg)
	s.kernelLocked(fmt.Sprintf(`TextStructure["%s...", "Sentiment"]`, truncate(msg, 15)))

	s.tasks.AfterFunc(s.game.Timings.ReplyDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.phase.Terminal() {
			return
		}
		req := partner.Request{History: history, Puzzle: &puzzle, Partner: s.partner}
		s.goLocked(func(ctx context.Context) {
			s.partnerSaid(0, false, s.voice.Reply(ctx, req))
		})
	})
	return true
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		Phase:         s.phase,
		Level:         s.level,
		LevelCount:    s.game.LevelCount(),
		Levels:        append([]domain.LevelStatus(nil), s.levels...),
		TimeRemaining: s.timeRemaining,
		ErrorCount:    s.errorCount,
		ErrorMessage:  s.errorMessage,
		Partner:       s.partner,
		Transcript:    append([]domain.ChatEntry(nil), s.transcript...),
		KernelLog:     s.kernel.snapshot(),
	}
	if s.puzzle != nil {
		v := s.puzzle.View()
		snap.Puzzle = &v
	}
	if s.outcome != nil {
		o := *s.outcome
		snap.Outcome = &o
	}
	return snap
}

// Outcome returns the final metrics once the session is complete.
func (s *Session) Outcome() (domain.UnityMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return domain.UnityMetrics{}, false
	}
	return *s.outcome, true
}

// Close cancels every pending timer and request. Results that arrive later
// are discarded. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	started := s.phase != domain.PhaseIdle
	s.closed = true
	s.phase = domain.PhaseClosed
	s.generation++
	s.tasks.StopAll()
	s.cancel()
	close(s.events)
	s.mu.Unlock()

	if started {
		s.rec.Log(chatlog.Event{
			UserID:    s.userID,
			SessionID: s.id,
			Channel:   "session",
			Direction: "outbound",
			EventType: chatlog.EventSessionEnd,
		})
	}
	s.log.Info("Game session closed")
}

func (s *Session) enterLevelLocked(level int, metrics *domain.PerformanceMetrics) {
	s.level = level
	s.levels[level-1] = domain.LevelActive
	s.phase = domain.PhaseLoading
	s.puzzle = nil
	s.generation++
	s.startedAt[level-1] = s.now()

	s.kernelLocked(fmt.Sprintf(`SetDirectory["Level_%d"]; Import["topology.wxf"]`, level))
	s.appendLocked(domain.SenderSystem, fmt.Sprintf("Entering %s...", s.game.Levels[level-1].Name))
	s.emitStateLocked()

	gen := s.generation
	req := content.Request{
		Level:          level,
		PartnerCountry: s.partner.Country,
		SelfCountry:    s.game.SelfCountry,
		Metrics:        metrics,
	}
	s.goLocked(func(ctx context.Context) {
		s.puzzleReady(gen, s.puzzles.Generate(ctx, req))
	})
}

func (s *Session) puzzleReady(gen uint64, p domain.Puzzle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		s.log.Debug("Discarding stale puzzle", "puzzle_id", p.ID, "difficulty", p.Difficulty)
		return
	}
	s.puzzle = &p
	s.phase = domain.PhaseActive

	view := p.View()
	if view.Flavor != "" {
		s.kernelLocked(strings.TrimSpace(view.Flavor))
	}
	s.emitLocked(Event{Type: EventPuzzle, Level: s.level, Puzzle: &view, TimeRemaining: s.timeRemaining})
	s.emitStateLocked()

	s.tasks.AfterFunc(s.game.Timings.GreetingDelay, func() { s.greet(gen) })
}

func (s *Session) greet(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation || s.puzzle == nil {
		return
	}
	req := partner.Request{
		History: []domain.HistoryTurn{partner.GreetingTurn},
		Puzzle:  s.puzzle,
		Partner: s.partner,
	}
	s.goLocked(func(ctx context.Context) {
		s.partnerSaid(gen, true, s.voice.Reply(ctx, req))
	})
}

// partnerSaid appends a partner reply. Greetings are bound to the level they
// were requested for; chat replies only to the session being live.
func (s *Session) partnerSaid(gen uint64, levelBound bool, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase.Terminal() {
		return
	}
	if levelBound && gen != s.generation {
		return
	}
	s.appendLocked(domain.SenderPartner, text)
}

func (s *Session) clearError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.errorMessage == "" {
		return
	}
	s.errorMessage = ""
	s.errorTimer = nil
	s.emitLocked(Event{Type: EventErrorCleared, TimeRemaining: s.timeRemaining})
}

func (s *Session) advanceLocked() {
	if s.level >= s.game.LevelCount() {
		s.completeLocked()
		return
	}
	m := s.performanceLocked()
	s.enterLevelLocked(s.level+1, &m)
}

func (s *Session) expireLocked() {
	for i, st := range s.levels {
		if !st.Terminal() {
			s.levels[i] = domain.LevelFailed
		}
	}
	s.kernelLocked(fmt.Sprintf("TimeConstrained[Session, %d] -> $Aborted", s.game.SessionBudget))
	s.appendLocked(domain.SenderSystem, expiredMessage)
	s.log.Info("Session countdown expired", "level", s.level)
	s.completeLocked()
}

func (s *Session) completeLocked() {
	outcome := CalculateOutcome(ScoreInput{
		Transcript:    s.transcript,
		Levels:        s.levels,
		ErrorCount:    s.errorCount,
		TimeRemaining: s.timeRemaining,
	}, s.rules)

	s.outcome = &outcome
	s.phase = domain.PhaseComplete
	s.puzzle = nil
	s.generation++
	s.tasks.StopAll()
	s.errorTimer = nil

	s.kernelLocked(`Evaluation["FinalScore"] // Total`)
	o := outcome
	s.emitLocked(Event{
		Type:          EventComplete,
		Phase:         s.phase,
		Levels:        append([]domain.LevelStatus(nil), s.levels...),
		TimeRemaining: s.timeRemaining,
		Outcome:       &o,
	})
	s.rec.Log(chatlog.Event{
		UserID:    s.userID,
		SessionID: s.id,
		Channel:   "session",
		Direction: "outbound",
		EventType: "outcome",
		Meta: map[string]any{
			"collaboration": outcome.Collaboration,
			"empathy":       outcome.Empathy,
			"communication": outcome.Communication,
			"time_taken":    outcome.TimeTaken,
			"levels":        s.levels,
			"error_count":   s.errorCount,
		},
	})
	s.log.Info("Game session complete",
		"collaboration", outcome.Collaboration,
		"empathy", outcome.Empathy,
		"communication", outcome.Communication,
		"time_taken", outcome.TimeTaken)
}

func (s *Session) performanceLocked() domain.PerformanceMetrics {
	var total time.Duration
	var solved int
	for i, st := range s.levels {
		if st == domain.LevelSolved {
			total += s.completion[i]
			solved++
		}
	}
	var avg float64
	if solved > 0 {
		avg = float64(total.Milliseconds()) / float64(solved)
	}

	var chat int
	for _, e := range s.transcript {
		if e.Sender == domain.SenderSelf {
			chat++
		}
	}
	return domain.PerformanceMetrics{
		ErrorCount:          s.errorCount,
		AvgCompletionMillis: avg,
		ChatActivity:        chat,
	}
}

func (s *Session) historyLocked() []domain.HistoryTurn {
	out := make([]domain.HistoryTurn, 0, len(s.transcript)+1)
	for _, e := range s.transcript {
		out = append(out, domain.HistoryTurn{Role: domain.RoleFor(e.Sender), Text: e.Text})
	}
	return out
}

func (s *Session) appendLocked(sender domain.Sender, text string) {
	now := s.now()
	entry := domain.ChatEntry{
		ID:        s.ids.next(now),
		Sender:    sender,
		Text:      text,
		Timestamp: now,
	}
	s.transcript = append(s.transcript, entry)
	s.emitLocked(Event{Type: EventEntry, Entry: &entry, TimeRemaining: s.timeRemaining})

	direction := "outbound"
	if sender == domain.SenderSelf {
		direction = "inbound"
	}
	s.rec.Log(chatlog.Event{
		Timestamp:  now.UTC(),
		UserID:     s.userID,
		SessionID:  s.id,
		Channel:    "session",
		Direction:  direction,
		EventType:  "chat_" + string(sender),
		ContentRaw: text,
		Meta:       map[string]any{"level": s.level, "entry_id": entry.ID},
	})
}

func (s *Session) kernelLocked(line string) {
	s.kernel.add(line)
	s.emitLocked(Event{Type: EventKernel, Message: line, TimeRemaining: s.timeRemaining})
}

func (s *Session) emitStateLocked() {
	s.emitLocked(Event{
		Type:          EventState,
		Phase:         s.phase,
		Level:         s.level,
		Levels:        append([]domain.LevelStatus(nil), s.levels...),
		TimeRemaining: s.timeRemaining,
	})
}

func (s *Session) emitLocked(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.log.Warn("Session event dropped, consumer too slow", "type", ev.Type)
	}
}

// goLocked runs fn on its own goroutine with the session context.
func (s *Session) goLocked(fn func(ctx context.Context)) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		fn(s.ctx)
	}()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
