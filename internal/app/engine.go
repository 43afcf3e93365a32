package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"empatia/internal/domain"
)

// TallyStore is the persistence the engine needs; *storage.WordScoreStore satisfies it
type TallyStore interface {
	Load(ctx context.Context, round int, expected []string) []domain.WordTally
	Save(ctx context.Context, round int, tallies []domain.WordTally) bool
}

// Completion is reported once per finished game
type Completion struct {
	GameID        string
	FinalScore    int
	SelectedWords [][]string // per round
	CompletedAt   time.Time
}

// RoundEngine drives one playthrough at a time through its rounds
type RoundEngine struct {
	mu     sync.Mutex
	game   *domain.Game
	rounds []domain.RoundDefinition
	policy domain.Policy
	store  TallyStore
	logger *slog.Logger

	// per-round selections of the running game, reported on completion
	history [][]string

	publish    func(*domain.GameEvent)
	onComplete func(Completion)
	lastTouch  time.Time
}

// NewRoundEngine creates an idle engine. store may be nil, in which case
// every round starts from default tallies and nothing is persisted.
func NewRoundEngine(rounds []domain.RoundDefinition, policy domain.Policy, store TallyStore, logger *slog.Logger) *RoundEngine {
	return &RoundEngine{
		game:      domain.NewGame("", rounds, policy),
		rounds:    rounds,
		policy:    policy,
		store:     store,
		logger:    logger,
		publish:   func(*domain.GameEvent) {},
		lastTouch: time.Now(),
	}
}

// OnEvent sets the sink for engine events. Events are published while the
// engine lock is held, so the sink must not block or call back into the engine.
func (e *RoundEngine) OnEvent(fn func(*domain.GameEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publish = fn
}

// OnComplete sets the hook called when a game reaches Completed.
// Like OnEvent it runs under the engine lock.
func (e *RoundEngine) OnComplete(fn func(Completion)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// Rounds returns the round definitions the engine plays
func (e *RoundEngine) Rounds() []domain.RoundDefinition {
	return e.rounds
}

// Policy returns the behaviour switches in effect
func (e *RoundEngine) Policy() domain.Policy {
	return e.policy
}

// StartGame discards any game in progress and enters round 0
func (e *RoundEngine) StartGame(ctx context.Context) (domain.GameSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rounds) == 0 {
		return domain.GameSnapshot{}, domain.ErrNoRounds
	}

	previous := e.game.Phase
	game := domain.NewGame(uuid.New().String(), e.rounds, e.policy)
	if err := game.Start(e.loadTallies(ctx, 0)); err != nil {
		return domain.GameSnapshot{}, err
	}
	e.game = game
	e.history = make([][]string, 0, len(e.rounds))
	e.touch()

	if previous == domain.PhaseRoundActive || previous == domain.PhaseRoundConfirmed {
		e.logger.Info("game restarted before completion", "game_id", game.ID, "previous_phase", previous)
	} else {
		e.logger.Info("game started", "game_id", game.ID)
	}

	snap := game.Snapshot()
	e.publish(domain.NewEvent(domain.EventGameStarted, game.ID, snap))
	e.publish(domain.NewEvent(domain.EventRoundStarted, game.ID, snap))
	return snap, nil
}

// ToggleSelection flips a word of the current round
func (e *RoundEngine) ToggleSelection(wordIndex int) (*domain.SelectionChangedPayload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	selected, err := e.game.ToggleSelection(wordIndex)
	if err != nil {
		e.logger.Debug("selection ignored", "game_id", e.game.ID, "word_index", wordIndex, "error", err)
		return nil, err
	}
	e.touch()

	snap := e.game.Snapshot()
	payload := &domain.SelectionChangedPayload{
		WordIndex:     wordIndex,
		Selected:      selected,
		SelectedCount: e.game.SelectedCount(),
		CanConfirm:    snap.CanConfirm,
	}
	e.publish(domain.NewEvent(domain.EventSelectionChanged, e.game.ID, payload))
	return payload, nil
}

// ConfirmRound tallies the current selection and persists the round. Without a
// summary step it also moves on to the next round or completes the game.
func (e *RoundEngine) ConfirmRound(ctx context.Context) (*domain.RoundOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcome, err := e.game.Confirm()
	if err != nil {
		e.logger.Debug("confirm rejected", "game_id", e.game.ID, "phase", e.game.Phase, "error", err)
		return nil, err
	}
	e.touch()
	e.history = append(e.history, outcome.SelectedWords)

	e.saveTallies(ctx, outcome.RoundIndex, outcome.Tallies)

	e.logger.Info("round confirmed",
		"game_id", e.game.ID,
		"round", outcome.RoundIndex,
		"selected", len(outcome.SelectedWords),
		"round_points", outcome.EmpathyPoints,
		"total", outcome.TotalEmpathyScore,
	)
	e.publish(domain.NewEvent(domain.EventRoundConfirmed, e.game.ID, outcome))

	if !e.policy.HasSummaryContinueStep {
		if err := e.advance(ctx); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// Continue leaves the summary of a confirmed round
func (e *RoundEngine) Continue(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.game.Phase != domain.PhaseRoundConfirmed {
		return domain.ErrInvalidPhase
	}
	e.touch()
	return e.advance(ctx)
}

// advance moves past a confirmed round; caller holds the lock
func (e *RoundEngine) advance(ctx context.Context) error {
	var tallies []domain.WordTally
	if next, ok := e.game.NextRoundIndex(); ok {
		tallies = e.loadTallies(ctx, next)
	}

	completed, err := e.game.Advance(tallies)
	if err != nil {
		e.logger.Error("failed to advance round", "game_id", e.game.ID, "error", err)
		return err
	}

	if !completed {
		e.publish(domain.NewEvent(domain.EventRoundStarted, e.game.ID, e.game.Snapshot()))
		return nil
	}

	e.logger.Info("game completed", "game_id", e.game.ID, "final_score", e.game.TotalEmpathyScore)
	if e.onComplete != nil {
		e.onComplete(Completion{
			GameID:        e.game.ID,
			FinalScore:    e.game.TotalEmpathyScore,
			SelectedWords: e.history,
			CompletedAt:   e.game.CompletedAt,
		})
	}
	return nil
}

// Abandon drops the game in progress, if any. Confirmed rounds stay tallied.
func (e *RoundEngine) Abandon(reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.game.ID
	if !e.game.Abandon() {
		return false
	}
	e.history = nil
	e.touch()

	e.logger.Info("game abandoned", "game_id", id, "reason", reason)
	e.publish(domain.NewEvent(domain.EventGameAbandoned, id, map[string]string{"reason": reason}))
	return true
}

// Snapshot returns a view of the current game
func (e *RoundEngine) Snapshot() domain.GameSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.Snapshot()
}

// Phase returns the current phase
func (e *RoundEngine) Phase() domain.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.Phase
}

// IdleFor returns how long since the last player action
func (e *RoundEngine) IdleFor(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Sub(e.lastTouch)
}

// Touch records player activity that did not go through the engine, such as a card tap
func (e *RoundEngine) Touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
}

func (e *RoundEngine) touch() {
	e.lastTouch = time.Now()
}

// loadTallies reads a round's tallies, or defaults without a store
func (e *RoundEngine) loadTallies(ctx context.Context, round int) []domain.WordTally {
	if round < 0 || round >= len(e.rounds) {
		e.logger.Error("invalid round index", "round", round)
		return nil
	}
	texts := e.rounds[round].Texts()
	if e.store == nil {
		return domain.DefaultTallies(texts)
	}
	return e.store.Load(ctx, round, texts)
}

// saveTallies persists a round; failure only costs the word cloud its history
func (e *RoundEngine) saveTallies(ctx context.Context, round int, tallies []domain.WordTally) {
	if e.store == nil {
		return
	}
	if !e.store.Save(ctx, round, tallies) {
		e.logger.Warn("round tallies not persisted", "game_id", e.game.ID, "round", round)
	}
}
