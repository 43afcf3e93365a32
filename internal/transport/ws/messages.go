package ws

import "time"

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgStartGame    MessageType = "start_game"
	MsgToggleWord   MessageType = "toggle_word"
	MsgConfirmRound MessageType = "confirm_round"
	MsgContinue     MessageType = "continue"
	MsgCardTapped   MessageType = "card_tapped"
	MsgGetState     MessageType = "get_state"
	MsgPing         MessageType = "ping"
)

// Server → Client message types. Game events are forwarded as they are
// published, keyed by their upper-case event type.
const (
	MsgConnected MessageType = "connected"
	MsgState     MessageType = "state"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Server message payloads

// StatePayload is the payload for connected and state messages
type StatePayload struct {
	ClientID string      `json:"clientId,omitempty"`
	Language string      `json:"language"`
	Game     interface{} `json:"game"`
	Result   interface{} `json:"result,omitempty"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeInvalidAction  = "INVALID_ACTION"
	ErrCodeInvalidWord    = "INVALID_WORD"
	ErrCodeNoSelection    = "NO_SELECTION"
	ErrCodeMissingCard    = "MISSING_CARD_ID"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
