package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"empatia/internal/app"
	"empatia/internal/domain"
	"empatia/internal/i18n"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestKiosk(t *testing.T) (*app.Kiosk, string) {
	t.Helper()

	engine := app.NewRoundEngine(domain.DefaultRounds(), domain.DefaultPolicy(), nil, testLogger())
	kiosk := app.NewKiosk(engine, nil, nil, i18n.Empty(), app.KioskConfig{DefaultLanguage: i18n.Portuguese}, testLogger())
	t.Cleanup(kiosk.Close)

	srv := httptest.NewServer(NewHandler(kiosk, testLogger()))
	t.Cleanup(srv.Close)

	return kiosk, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialURL(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	_, url := newTestKiosk(t)
	return dialURL(t, url+query)
}

func send(t *testing.T, conn *websocket.Conn, msgType MessageType, payload interface{}) {
	t.Helper()
	if err := conn.WriteJSON(ClientMessage{Type: msgType, Payload: payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil skips messages until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, want string) inbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestConnectSendsState(t *testing.T) {
	conn := dial(t, "?clientId=screen-1&lang=en")

	msg := readUntil(t, conn, string(MsgConnected))
	var state struct {
		ClientID string              `json:"clientId"`
		Language string              `json:"language"`
		Game     domain.GameSnapshot `json:"game"`
	}
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		t.Fatal(err)
	}
	if state.ClientID != "screen-1" {
		t.Errorf("got client id %q, want screen-1", state.ClientID)
	}
	if state.Language != "en" {
		t.Errorf("got language %q, want en", state.Language)
	}
	if state.Game.Phase != domain.PhaseIdle {
		t.Errorf("got phase %v, want idle", state.Game.Phase)
	}
}

func TestGameEventsAreForwarded(t *testing.T) {
	conn := dial(t, "")
	readUntil(t, conn, string(MsgConnected))

	send(t, conn, MsgStartGame, nil)
	readUntil(t, conn, string(domain.EventGameStarted))

	send(t, conn, MsgToggleWord, map[string]int{"wordIndex": 2})
	msg := readUntil(t, conn, string(domain.EventSelectionChanged))

	var changed domain.SelectionChangedPayload
	if err := json.Unmarshal(msg.Payload, &changed); err != nil {
		t.Fatal(err)
	}
	if changed.WordIndex != 2 || !changed.Selected || !changed.CanConfirm {
		t.Errorf("got %+v", changed)
	}

	send(t, conn, MsgConfirmRound, nil)
	readUntil(t, conn, string(domain.EventRoundConfirmed))
}

func TestErrorsAreReported(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		msgType MessageType
		payload interface{}
		code    string
	}{
		{name: "bad json", raw: "{", code: ErrCodeInvalidMessage},
		{name: "unknown type", msgType: "dance", code: ErrCodeInvalidMessage},
		{name: "confirm while idle", msgType: MsgConfirmRound, code: ErrCodeInvalidAction},
		{name: "toggle without index", msgType: MsgToggleWord, payload: map[string]string{}, code: ErrCodeInvalidMessage},
		{name: "fractional index", msgType: MsgToggleWord, payload: map[string]float64{"wordIndex": 1.5}, code: ErrCodeInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, "")
			readUntil(t, conn, string(MsgConnected))

			if tt.raw != "" {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
					t.Fatal(err)
				}
			} else {
				send(t, conn, tt.msgType, tt.payload)
			}

			msg := readUntil(t, conn, string(MsgError))
			var payload ErrorPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				t.Fatal(err)
			}
			if payload.Code != tt.code {
				t.Errorf("got code %q, want %q", payload.Code, tt.code)
			}
		})
	}
}

func TestPing(t *testing.T) {
	conn := dial(t, "")
	readUntil(t, conn, string(MsgConnected))

	send(t, conn, MsgPing, nil)
	readUntil(t, conn, string(MsgPong))
}

func TestReconnectKeepsNewConnection(t *testing.T) {
	kiosk, url := newTestKiosk(t)

	first := dialURL(t, url+"?clientId=screen")
	readUntil(t, first, string(MsgConnected))
	second := dialURL(t, url+"?clientId=screen")
	readUntil(t, second, string(MsgConnected))

	first.Close()

	// give the stale connection's read pump time to exit
	time.Sleep(200 * time.Millisecond)

	if got := kiosk.ClientCount(); got != 1 {
		t.Fatalf("got %d clients, want 1", got)
	}

	send(t, second, MsgStartGame, nil)
	readUntil(t, second, string(domain.EventGameStarted))
}
