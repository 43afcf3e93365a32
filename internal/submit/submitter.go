// Package submit delivers a finished game's skill scores to the event backend
// once the player identifies with an NFC card.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"empatia/internal/domain"
)

// DefaultTimeout bounds one delivery attempt
const DefaultTimeout = 10 * time.Second

// Doer sends HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pending is a result waiting for a card tap
type Pending struct {
	GameID   string             `json:"gameId"`
	Scores   domain.SkillScores `json:"scores"`
	QueuedAt time.Time          `json:"queuedAt"`
}

// Payload is the body POSTed to the backend
type Payload struct {
	NFCID  string `json:"nfcId"`
	GameID int    `json:"gameId"`
	Skill1 int    `json:"skill1"`
	Skill2 int    `json:"skill2"`
	Skill3 int    `json:"skill3"`
}

// Result reports how a delivery attempt ended
type Result struct {
	NFCID      string
	Reader     string
	Game       string
	Payload    Payload
	StatusCode int
	Err        error
}

// Succeeded reports whether the backend accepted the scores
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Config configures a Submitter
type Config struct {
	BaseURL string // e.g. http://127.0.0.1:3000
	GameID  int
	Timeout time.Duration
	Client  Doer // defaults to an *http.Client with Timeout
}

// Submitter holds at most one pending submission and sends it, once, when a
// card is tapped.
type Submitter struct {
	mu      sync.Mutex
	pending *Pending
	closed  bool

	baseURL string
	gameID  int
	client  Doer
	logger  *slog.Logger

	results chan Result
	wg      sync.WaitGroup
}

// New creates a submitter
func New(cfg Config, logger *slog.Logger) (*Submitter, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid submit base url %q", cfg.BaseURL)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Submitter{
		baseURL: base,
		gameID:  cfg.GameID,
		client:  client,
		logger:  logger,
		results: make(chan Result, 16),
	}, nil
}

// Queue stores the scores of a finished game. A newer game replaces any result
// still waiting for a card.
func (s *Submitter) Queue(gameID string, scores domain.SkillScores) {
	s.mu.Lock()
	replaced := s.pending != nil
	s.pending = &Pending{
		GameID:   gameID,
		Scores:   scores,
		QueuedAt: time.Now(),
	}
	s.mu.Unlock()

	s.logger.Info("submission queued, waiting for card",
		"game_id", gameID,
		"empathy", scores.Empathy,
		"active_listening", scores.ActiveListening,
		"self_awareness", scores.SelfAwareness,
		"replaced", replaced,
	)
}

// Pending returns a copy of the waiting submission, if any
func (s *Submitter) Pending() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return Pending{}, false
	}
	return *s.pending, true
}

// OnIdentifier claims the pending submission for the tapped card and starts
// sending it. It returns false when there was nothing to send.
// The outcome arrives on Results.
func (s *Submitter) OnIdentifier(ctx context.Context, nfcID, reader string) (bool, error) {
	nfcID = strings.TrimSpace(nfcID)
	if nfcID == "" {
		s.logger.Warn("card read without identifier", "reader", reader)
		return false, domain.ErrEmptyIdentifier
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, fmt.Errorf("submitter closed")
	}
	pending := s.pending
	s.pending = nil
	if pending != nil {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if pending == nil {
		s.logger.Warn("card read but no game result is pending", "nfc_id", nfcID, "reader", reader)
		return false, nil
	}

	payload := Payload{
		NFCID:  nfcID,
		GameID: s.gameID,
		Skill1: pending.Scores.Empathy,
		Skill2: pending.Scores.ActiveListening,
		Skill3: pending.Scores.SelfAwareness,
	}

	// the tap request returns before delivery finishes
	sendCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		res := s.send(sendCtx, payload)
		res.Reader = reader
		res.Game = pending.GameID
		s.results <- res
	}()

	return true, nil
}

// send performs the single delivery attempt
func (s *Submitter) send(ctx context.Context, payload Payload) Result {
	res := Result{NFCID: payload.NFCID, Payload: payload}
	target := s.baseURL + "/users/" + url.PathEscape(payload.NFCID)

	body, err := json.Marshal(payload)
	if err != nil {
		res.Err = fmt.Errorf("encode payload: %w", err)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug("sending game result", "url", target, "payload", string(body))

	resp, err := s.client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("post %s: %w", target, err)
		s.logger.Error("game result delivery failed", "nfc_id", payload.NFCID, "url", target, "error", err)
		return res
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	res.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Err = fmt.Errorf("post %s: unexpected status %d", target, resp.StatusCode)
		s.logger.Error("game result rejected",
			"nfc_id", payload.NFCID,
			"url", target,
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return res
	}

	s.logger.Info("game result delivered", "nfc_id", payload.NFCID, "status", resp.StatusCode)
	return res
}

// Results delivers one Result per started delivery. It has a single consumer.
func (s *Submitter) Results() <-chan Result {
	return s.results
}

// Close waits for in-flight deliveries and closes Results
func (s *Submitter) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	close(s.results)
}
