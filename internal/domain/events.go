package domain

import "time"

// EventType represents the type of kiosk event
type EventType string

const (
	EventGameStarted         EventType = "GAME_STARTED"
	EventRoundStarted        EventType = "ROUND_STARTED"
	EventSelectionChanged    EventType = "SELECTION_CHANGED"
	EventRoundConfirmed      EventType = "ROUND_CONFIRMED"
	EventGameCompleted       EventType = "GAME_COMPLETED"
	EventSubmissionQueued    EventType = "SUBMISSION_QUEUED"
	EventCardIgnored         EventType = "CARD_IGNORED"
	EventSubmissionSucceeded EventType = "SUBMISSION_SUCCEEDED"
	EventSubmissionFailed    EventType = "SUBMISSION_FAILED"
	EventScoresReset         EventType = "SCORES_RESET"
	EventGameAbandoned       EventType = "GAME_ABANDONED"
)

// GameEvent represents an event that occurred in the kiosk
type GameEvent struct {
	Type      EventType   `json:"type"`
	GameID    string      `json:"gameId"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new game event
func NewEvent(eventType EventType, gameID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameID:    gameID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// SelectionChangedPayload is sent when a word is toggled
type SelectionChangedPayload struct {
	WordIndex     int  `json:"wordIndex"`
	Selected      bool `json:"selected"`
	SelectedCount int  `json:"selectedCount"`
	CanConfirm    bool `json:"canConfirm"`
}

// GameResult is the outcome of a completed playthrough
type GameResult struct {
	GameID        string      `json:"gameId"`
	FinalScore    int         `json:"finalScore"`
	MaxScore      int         `json:"maxScore"`
	Skills        SkillScores `json:"skills"`
	TopWords      []WordScore `json:"topWords"`
	CompletedAt   time.Time   `json:"completedAt"`
	Submitted     bool        `json:"submitted"`
	SubmittedToID string      `json:"submittedToId,omitempty"`
}

// CardTappedPayload is sent when a card is read
type CardTappedPayload struct {
	NFCID  string `json:"nfcId"`
	Reader string `json:"reader,omitempty"`
}

// SubmissionResultPayload is sent when the outbound update finishes
type SubmissionResultPayload struct {
	NFCID      string `json:"nfcId"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}
