package domain

import "errors"

// Domain errors
var (
	ErrInvalidPhase     = errors.New("invalid action for current phase")
	ErrInvalidRound     = errors.New("invalid round index")
	ErrInvalidWordIndex = errors.New("word index out of range")
	ErrNoSelection      = errors.New("at least one word must be selected")
	ErrRoundMismatch    = errors.New("tallies do not match round words")
	ErrNoRounds         = errors.New("game has no rounds configured")
	ErrEmptyIdentifier  = errors.New("card identifier cannot be empty")
)
