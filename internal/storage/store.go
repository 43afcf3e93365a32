// Package storage persists the per-round word tallies that feed the word cloud.
// Scores accumulate across every player of an event until an administrator
// resets them, so the store outlives any single game.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"empatia/internal/domain"
)

// ErrNotFound is returned by a Backend when a round has never been saved
var ErrNotFound = errors.New("round scores not found")

// Backend is the durable medium behind a WordScoreStore
type Backend interface {
	Read(ctx context.Context, round int) ([]domain.WordTally, error)
	Write(ctx context.Context, round int, tallies []domain.WordTally) error
	DeleteAll(ctx context.Context) error
	Close() error
}

// WordScoreStore loads and saves one tally list per round.
// Load never fails and Save reports failure instead of returning it, so a broken
// disk degrades the word cloud without stopping the game.
type WordScoreStore struct {
	backend Backend
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewWordScoreStore wraps a backend
func NewWordScoreStore(backend Backend, logger *slog.Logger) *WordScoreStore {
	return &WordScoreStore{
		backend: backend,
		logger:  logger,
	}
}

// Load returns the stored tallies of a round, or default tallies built from
// expected when nothing usable is stored.
func (s *WordScoreStore) Load(ctx context.Context, round int, expected []string) []domain.WordTally {
	if !domain.ValidRound(round) {
		s.logger.Error("invalid round index on load", "round", round)
		return domain.DefaultTallies(expected)
	}

	// defaults loaded here are saved back on confirm, so a cancelled
	// request must not turn into a reset of the round
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	stored, err := s.backend.Read(ctx, round)
	s.mu.Unlock()

	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Info("no stored scores for round, using defaults", "round", round)
		return domain.DefaultTallies(expected)
	case err != nil:
		s.logger.Error("failed to load round scores", "round", round, "error", err)
		return domain.DefaultTallies(expected)
	case len(stored) == 0:
		s.logger.Warn("stored scores for round are empty, using defaults", "round", round)
		return domain.DefaultTallies(expected)
	}

	s.logger.Debug("round scores loaded", "round", round, "words", len(stored))
	return domain.SanitizeTallies(stored)
}

// Save writes the tallies of a round and reports whether it succeeded
func (s *WordScoreStore) Save(ctx context.Context, round int, tallies []domain.WordTally) bool {
	if !domain.ValidRound(round) {
		s.logger.Error("invalid round index on save", "round", round)
		return false
	}

	// a player walking away mid-request must not lose the event's tallies
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	err := s.backend.Write(ctx, round, domain.CopyTallies(tallies))
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to save round scores", "round", round, "error", err)
		return false
	}

	s.logger.Debug("round scores saved", "round", round, "words", len(tallies))
	return true
}

// Tallies returns exactly what is stored for a round, without defaults
func (s *WordScoreStore) Tallies(ctx context.Context, round int) ([]domain.WordTally, error) {
	if !domain.ValidRound(round) {
		return nil, fmt.Errorf("round %d: %w", round, domain.ErrInvalidRound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Read(ctx, round)
}

// ResetAll deletes every stored round
func (s *WordScoreStore) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.DeleteAll(ctx); err != nil {
		s.logger.Error("failed to reset round scores", "error", err)
		return fmt.Errorf("reset scores: %w", err)
	}

	s.logger.Info("all round scores reset")
	return nil
}

// Close releases the backend
func (s *WordScoreStore) Close() error {
	return s.backend.Close()
}
