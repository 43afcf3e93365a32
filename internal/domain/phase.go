package domain

// Phase represents the current phase of a playthrough
type Phase string

const (
	PhaseIdle           Phase = "IDLE"            // No game started yet
	PhaseRoundActive    Phase = "ROUND_ACTIVE"    // Player is choosing words
	PhaseRoundConfirmed Phase = "ROUND_CONFIRMED" // Choices tallied, summary on screen
	PhaseCompleted      Phase = "COMPLETED"       // All rounds confirmed, score final
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseIdle:           {PhaseRoundActive},
		PhaseRoundActive:    {PhaseRoundConfirmed, PhaseRoundActive, PhaseIdle}, // restart re-enters round 0
		PhaseRoundConfirmed: {PhaseRoundActive, PhaseCompleted, PhaseIdle},
		PhaseCompleted:      {PhaseRoundActive, PhaseIdle}, // new game
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}

// AcceptsSelection reports whether word selections may change in this phase
func (p Phase) AcceptsSelection() bool {
	return p == PhaseRoundActive
}
