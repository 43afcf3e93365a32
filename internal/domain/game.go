package domain

import (
	"time"
)

// Policy holds the behaviour switches on which kiosk builds have differed
type Policy struct {
	RequireMinimumSelection bool `json:"requireMinimumSelection"`
	HasSummaryContinueStep  bool `json:"hasSummaryContinueStep"`
}

// DefaultPolicy returns the policy of the event build
func DefaultPolicy() Policy {
	return Policy{
		RequireMinimumSelection: true,
		HasSummaryContinueStep:  true,
	}
}

// Game is one playthrough of the three situations
type Game struct {
	ID                string            `json:"id"`
	Rounds            []RoundDefinition `json:"-"`
	Policy            Policy            `json:"policy"`
	Phase             Phase             `json:"phase"`
	RoundIndex        int               `json:"roundIndex"`
	TotalEmpathyScore int               `json:"totalEmpathyScore"`
	Selected          []bool            `json:"selected"`
	Tallies           []WordTally       `json:"tallies"`
	LastSelectedWords []string          `json:"lastSelectedWords"`
	StartedAt         time.Time         `json:"startedAt"`
	CompletedAt       time.Time         `json:"completedAt,omitempty"`
}

// RoundOutcome is what confirming a round produced
type RoundOutcome struct {
	RoundIndex        int         `json:"roundIndex"`
	SelectedWords     []string    `json:"selectedWords"`
	EmpathyPoints     int         `json:"empathyPoints"`
	TotalEmpathyScore int         `json:"totalEmpathyScore"`
	Tallies           []WordTally `json:"tallies"`
	LastRound         bool        `json:"lastRound"`
}

// NewGame creates an idle game over the given rounds
func NewGame(id string, rounds []RoundDefinition, policy Policy) *Game {
	return &Game{
		ID:                id,
		Rounds:            rounds,
		Policy:            policy,
		Phase:             PhaseIdle,
		RoundIndex:        0,
		LastSelectedWords: make([]string, 0),
	}
}

// Start resets the score and enters the first round with its stored tallies.
// Every phase may restart, so only a game without rounds is rejected.
func (g *Game) Start(tallies []WordTally) error {
	if len(g.Rounds) == 0 {
		return ErrNoRounds
	}

	g.TotalEmpathyScore = 0
	g.LastSelectedWords = make([]string, 0)
	g.StartedAt = time.Now()
	g.CompletedAt = time.Time{}

	return g.enterRound(0, tallies)
}

// enterRound clears the selection state and loads the round's tallies
func (g *Game) enterRound(index int, tallies []WordTally) error {
	if index < 0 || index >= len(g.Rounds) {
		return ErrInvalidRound
	}

	round := g.Rounds[index]
	g.RoundIndex = index
	g.Selected = make([]bool, len(round.Words))
	g.Tallies = ReconcileTallies(tallies, round.Texts())
	g.Phase = PhaseRoundActive

	return nil
}

// CurrentRound returns the definition of the round being played
func (g *Game) CurrentRound() (RoundDefinition, error) {
	if g.RoundIndex < 0 || g.RoundIndex >= len(g.Rounds) {
		return RoundDefinition{}, ErrInvalidRound
	}
	return g.Rounds[g.RoundIndex], nil
}

// ToggleSelection flips the selection of a word and returns its new state.
// Out of range indices leave the state untouched.
func (g *Game) ToggleSelection(wordIndex int) (bool, error) {
	if !g.Phase.AcceptsSelection() {
		return false, ErrInvalidPhase
	}
	if wordIndex < 0 || wordIndex >= len(g.Selected) {
		return false, ErrInvalidWordIndex
	}

	g.Selected[wordIndex] = !g.Selected[wordIndex]
	return g.Selected[wordIndex], nil
}

// SelectedCount returns how many words are currently selected
func (g *Game) SelectedCount() int {
	count := 0
	for _, s := range g.Selected {
		if s {
			count++
		}
	}
	return count
}

// Confirm tallies the current selection: every selected word gains one
// cumulative point and every selected empathetic word adds one to the score.
// A round can only be confirmed once.
func (g *Game) Confirm() (*RoundOutcome, error) {
	if g.Phase != PhaseRoundActive {
		return nil, ErrInvalidPhase
	}

	round, err := g.CurrentRound()
	if err != nil {
		return nil, err
	}

	if g.Policy.RequireMinimumSelection && g.SelectedCount() == 0 {
		return nil, ErrNoSelection
	}

	if len(g.Tallies) != len(round.Words) {
		return nil, ErrRoundMismatch
	}

	selectedWords := make([]string, 0, len(round.Words))
	roundPoints := 0
	for i, word := range round.Words {
		if i >= len(g.Selected) || !g.Selected[i] {
			continue
		}
		selectedWords = append(selectedWords, word.Text)
		g.Tallies[i].CumulativePoints++
		if word.IsEmpathetic {
			roundPoints++
		}
	}

	g.TotalEmpathyScore += roundPoints
	g.LastSelectedWords = selectedWords
	g.Phase = PhaseRoundConfirmed

	return &RoundOutcome{
		RoundIndex:        g.RoundIndex,
		SelectedWords:     selectedWords,
		EmpathyPoints:     roundPoints,
		TotalEmpathyScore: g.TotalEmpathyScore,
		Tallies:           CopyTallies(g.Tallies),
		LastRound:         g.RoundIndex == len(g.Rounds)-1,
	}, nil
}

// NextRoundIndex returns the round that Advance would enter, false when the
// confirmed round was the last one.
func (g *Game) NextRoundIndex() (int, bool) {
	next := g.RoundIndex + 1
	if next >= len(g.Rounds) {
		return 0, false
	}
	return next, true
}

// Advance leaves a confirmed round. It enters the next round with the given
// tallies or, after the last round, completes the game.
func (g *Game) Advance(nextTallies []WordTally) (completed bool, err error) {
	if g.Phase != PhaseRoundConfirmed {
		return false, ErrInvalidPhase
	}

	next, ok := g.NextRoundIndex()
	if !ok {
		g.Phase = PhaseCompleted
		g.CompletedAt = time.Now()
		g.Selected = make([]bool, len(g.Selected))
		return true, nil
	}

	return false, g.enterRound(next, nextTallies)
}

// Abandon returns an unfinished or finished game to Idle, keeping whatever
// was already tallied. It reports whether anything changed.
func (g *Game) Abandon() bool {
	if !g.Phase.CanTransitionTo(PhaseIdle) {
		return false
	}
	g.Phase = PhaseIdle
	g.RoundIndex = 0
	g.TotalEmpathyScore = 0
	g.Selected = nil
	g.Tallies = nil
	g.LastSelectedWords = make([]string, 0)
	return true
}

// IsCompleted reports whether the final score is available
func (g *Game) IsCompleted() bool {
	return g.Phase == PhaseCompleted
}

// WordView is one word of the current round as presented to the player
type WordView struct {
	Index            int    `json:"index"`
	Text             string `json:"text"`
	Label            string `json:"label,omitempty"`
	Selected         bool   `json:"selected"`
	CumulativePoints int    `json:"cumulativePoints"`
}

// GameSnapshot is a read-only view of a game
type GameSnapshot struct {
	ID                string       `json:"id"`
	Phase             Phase        `json:"phase"`
	RoundIndex        int          `json:"roundIndex"`
	RoundNumber       int          `json:"roundNumber"`
	TotalRounds       int          `json:"totalRounds"`
	TotalEmpathyScore int          `json:"totalEmpathyScore"`
	Words             []WordView   `json:"words"`
	LastSelectedWords []string     `json:"lastSelectedWords"`
	Cloud             []CloudEntry `json:"cloud"`
	CanConfirm        bool         `json:"canConfirm"`
	Policy            Policy       `json:"policy"`
}

// Snapshot captures the game state for rendering
func (g *Game) Snapshot() GameSnapshot {
	snap := GameSnapshot{
		ID:                g.ID,
		Phase:             g.Phase,
		RoundIndex:        g.RoundIndex,
		RoundNumber:       g.RoundIndex + 1,
		TotalRounds:       len(g.Rounds),
		TotalEmpathyScore: g.TotalEmpathyScore,
		Words:             make([]WordView, 0, WordsPerRound),
		LastSelectedWords: append([]string(nil), g.LastSelectedWords...),
		Cloud:             CloudWeights(g.Tallies),
		Policy:            g.Policy,
	}

	if g.Phase == PhaseIdle {
		snap.RoundNumber = 0
		return snap
	}

	if round, err := g.CurrentRound(); err == nil {
		for i, w := range round.Words {
			view := WordView{Index: i, Text: w.Text}
			if i < len(g.Selected) {
				view.Selected = g.Selected[i]
			}
			if i < len(g.Tallies) {
				view.CumulativePoints = g.Tallies[i].CumulativePoints
			}
			snap.Words = append(snap.Words, view)
		}
	}

	switch g.Phase {
	case PhaseRoundActive:
		snap.CanConfirm = !g.Policy.RequireMinimumSelection || g.SelectedCount() > 0
	case PhaseRoundConfirmed:
		snap.CanConfirm = g.Policy.HasSummaryContinueStep
	}

	return snap
}
