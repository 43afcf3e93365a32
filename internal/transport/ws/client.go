package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/text/language"

	"empatia/internal/app"
	"empatia/internal/domain"
	"empatia/internal/i18n"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client represents a kiosk screen connected over WebSocket
type Client struct {
	conn     *websocket.Conn
	kiosk    *app.Kiosk
	clientID string
	lang     language.Tag
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, kiosk *app.Kiosk, clientID string, lang language.Tag, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		kiosk:    kiosk,
		clientID: clientID,
		lang:     lang,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// GetClientID returns the ID of this screen
func (c *Client) GetClientID() string {
	return c.clientID
}

// Send implements app.ClientConnection interface
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped", "client_id", c.clientID)
		return nil
	}
}

// Close implements app.ClientConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.kiosk.UnregisterClient(c)
		c.Close()
		c.logger.Info("websocket disconnected", "client_id", c.clientID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the screen
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	ctx := context.Background()

	switch msg.Type {
	case MsgStartGame:
		c.handleStartGame(ctx, msg.Payload)
	case MsgToggleWord:
		c.handleToggleWord(msg.Payload)
	case MsgConfirmRound:
		if _, err := c.kiosk.ConfirmRound(ctx); err != nil {
			c.sendDomainError(err)
		}
	case MsgContinue:
		if err := c.kiosk.Continue(ctx); err != nil {
			c.sendDomainError(err)
		}
	case MsgCardTapped:
		c.handleCardTapped(ctx, msg.Payload)
	case MsgGetState:
		c.sendState(MsgState)
	case MsgPing:
		c.sendPong()
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

// handleStartGame handles a start_game message; an optional "lang" switches
// the screen's language for the new game
func (c *Client) handleStartGame(ctx context.Context, payload interface{}) {
	if payloadMap, ok := payload.(map[string]interface{}); ok {
		if lang, ok := payloadMap["lang"].(string); ok {
			if tag, ok := i18n.ParseTag(lang); ok {
				c.mu.Lock()
				c.lang = tag
				c.mu.Unlock()
			}
		}
	}

	if _, err := c.kiosk.StartGame(ctx, c.language()); err != nil {
		c.sendDomainError(err)
	}
}

// handleToggleWord handles a toggle_word message
func (c *Client) handleToggleWord(payload interface{}) {
	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	index, ok := payloadMap["wordIndex"].(float64)
	if !ok || index != float64(int(index)) {
		c.sendError(ErrCodeInvalidMessage, "Word index is required")
		return
	}

	if _, err := c.kiosk.ToggleWord(int(index)); err != nil {
		c.sendDomainError(err)
	}
}

// handleCardTapped handles a card_tapped message from a reader bridge
func (c *Client) handleCardTapped(ctx context.Context, payload interface{}) {
	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	nfcID, _ := payloadMap["nfcId"].(string)
	reader, _ := payloadMap["reader"].(string)

	if _, err := c.kiosk.TapCard(ctx, nfcID, reader); err != nil {
		c.sendDomainError(err)
	}
}

// language returns the screen's current language
func (c *Client) language() language.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

// sendState sends the current game and last result to the screen
func (c *Client) sendState(msgType MessageType) {
	lang := c.language()
	payload := &StatePayload{
		ClientID: c.clientID,
		Language: lang.String(),
		Game:     c.kiosk.Snapshot(lang),
	}
	if result, ok := c.kiosk.LastResult(); ok {
		payload.Result = result
	}

	c.Send(NewServerMessage(msgType, payload))
}

// sendDomainError maps a game error to an error message
func (c *Client) sendDomainError(err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPhase):
		c.sendError(ErrCodeInvalidAction, "Not allowed right now")
	case errors.Is(err, domain.ErrInvalidWordIndex):
		c.sendError(ErrCodeInvalidWord, "No such word in this round")
	case errors.Is(err, domain.ErrNoSelection):
		c.sendError(ErrCodeNoSelection, "Select at least one word")
	case errors.Is(err, domain.ErrEmptyIdentifier):
		c.sendError(ErrCodeMissingCard, "Card identifier is required")
	default:
		c.logger.Error("websocket action failed", "client_id", c.clientID, "error", err)
		c.sendError(ErrCodeInternalError, err.Error())
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	payload := &ErrorPayload{
		Code:    code,
		Message: message,
	}

	msg := NewServerMessage(MsgError, payload)
	c.Send(msg)
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	msg := NewServerMessage(MsgPong, nil)
	c.Send(msg)
}
