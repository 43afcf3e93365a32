package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"empatia/internal/domain"
	"empatia/internal/i18n"
	"empatia/internal/storage"
	"empatia/internal/submit"
)

// ClientConnection represents a connected kiosk screen
type ClientConnection interface {
	Send(message interface{}) error
	GetClientID() string
	Close() error
}

// ScoreStore is the tally persistence used by the kiosk and its admin endpoints
type ScoreStore interface {
	TallyStore
	Tallies(ctx context.Context, round int) ([]domain.WordTally, error)
	ResetAll(ctx context.Context) error
}

// ResultSender holds finished results until a card is tapped; *submit.Submitter satisfies it
type ResultSender interface {
	Queue(gameID string, scores domain.SkillScores)
	OnIdentifier(ctx context.Context, nfcID, reader string) (bool, error)
	Pending() (submit.Pending, bool)
	Results() <-chan submit.Result
}

// KioskConfig holds kiosk behaviour settings
type KioskConfig struct {
	TopWords          int
	InactivityTimeout time.Duration // 0 disables the reset
	DefaultLanguage   language.Tag
}

// RoundTallies is the persisted state of one round for the admin view
type RoundTallies struct {
	Round   int                 `json:"round"`
	Stored  bool                `json:"stored"`
	Tallies []domain.WordTally  `json:"tallies"`
	Cloud   []domain.CloudEntry `json:"cloud"`
}

// Kiosk wires the round engine to result projection, card submission and
// connected screens. It is the single consumer of submission results.
type Kiosk struct {
	engine    *RoundEngine
	store     ScoreStore
	submitter ResultSender
	catalog   *i18n.Catalog
	cfg       KioskConfig
	logger    *slog.Logger

	mu         sync.RWMutex
	board      *domain.WordBoard
	lastResult *domain.GameResult

	clients   map[string]ClientConnection
	clientsMu sync.RWMutex

	// Event channel for broadcasting
	events chan *domain.GameEvent
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewKiosk creates a kiosk and starts its event loop
func NewKiosk(engine *RoundEngine, store ScoreStore, submitter ResultSender, catalog *i18n.Catalog, cfg KioskConfig, logger *slog.Logger) *Kiosk {
	if cfg.TopWords <= 0 {
		cfg.TopWords = domain.DefaultTopWords
	}
	if cfg.DefaultLanguage == language.Und {
		cfg.DefaultLanguage = i18n.Portuguese
	}
	if catalog == nil {
		catalog = i18n.Empty()
	}

	k := &Kiosk{
		engine:    engine,
		store:     store,
		submitter: submitter,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
		board:     domain.NewWordBoard(),
		clients:   make(map[string]ClientConnection),
		events:    make(chan *domain.GameEvent, 100),
		done:      make(chan struct{}),
	}

	engine.OnEvent(k.queueEvent)
	engine.OnComplete(k.handleCompletion)

	k.wg.Add(1)
	go k.eventLoop()

	if cfg.InactivityTimeout > 0 {
		k.wg.Add(1)
		go k.inactivityLoop()
	}

	return k
}

// Engine returns the round engine
func (k *Kiosk) Engine() *RoundEngine {
	return k.engine
}

// DefaultLanguage returns the language used when a screen asks for none
func (k *Kiosk) DefaultLanguage() language.Tag {
	return k.cfg.DefaultLanguage
}

// RegisterClient registers a screen connection
func (k *Kiosk) RegisterClient(client ClientConnection) {
	k.clientsMu.Lock()
	defer k.clientsMu.Unlock()
	k.clients[client.GetClientID()] = client
}

// UnregisterClient removes a screen connection. A screen that reconnected
// under the same ID keeps its newer connection.
func (k *Kiosk) UnregisterClient(client ClientConnection) {
	k.clientsMu.Lock()
	defer k.clientsMu.Unlock()
	id := client.GetClientID()
	if current, ok := k.clients[id]; ok && current == client {
		delete(k.clients, id)
	}
}

// ClientCount returns the number of connected screens
func (k *Kiosk) ClientCount() int {
	k.clientsMu.RLock()
	defer k.clientsMu.RUnlock()
	return len(k.clients)
}

// StartGame starts a new playthrough
func (k *Kiosk) StartGame(ctx context.Context, tag language.Tag) (domain.GameSnapshot, error) {
	if _, err := k.engine.StartGame(ctx); err != nil {
		return domain.GameSnapshot{}, err
	}
	return k.Snapshot(tag), nil
}

// ToggleWord flips a word of the current round
func (k *Kiosk) ToggleWord(wordIndex int) (*domain.SelectionChangedPayload, error) {
	return k.engine.ToggleSelection(wordIndex)
}

// ConfirmRound tallies the current round
func (k *Kiosk) ConfirmRound(ctx context.Context) (*domain.RoundOutcome, error) {
	return k.engine.ConfirmRound(ctx)
}

// Continue leaves the round summary
func (k *Kiosk) Continue(ctx context.Context) error {
	return k.engine.Continue(ctx)
}

// Snapshot returns the current game with word labels in the given language
func (k *Kiosk) Snapshot(tag language.Tag) domain.GameSnapshot {
	snap := k.engine.Snapshot()
	for i := range snap.Words {
		snap.Words[i].Label = k.catalog.WordLabel(tag, snap.RoundIndex, snap.Words[i].Index)
	}
	return snap
}

// Localize returns a string of the language catalog
func (k *Kiosk) Localize(tag language.Tag, section, key string) (string, bool) {
	return k.catalog.Find(tag, section, key)
}

// handleCompletion projects the final score and queues it for submission.
// Runs under the engine lock.
func (k *Kiosk) handleCompletion(c Completion) {
	skills := domain.ComputeSkillScores(c.FinalScore)

	k.mu.Lock()
	k.board.Reset()
	// the player's own picks count once each next to the skill credits, so
	// the ranking reflects what they chose and not only the fixed skill words
	for _, words := range c.SelectedWords {
		for _, w := range words {
			k.board.Add(w, 1)
		}
	}
	k.board.AddAll(domain.SkillWordBonuses(skills))

	result := &domain.GameResult{
		GameID:      c.GameID,
		FinalScore:  c.FinalScore,
		MaxScore:    domain.MaxEmpathyScore,
		Skills:      skills,
		TopWords:    k.board.Top(k.cfg.TopWords),
		CompletedAt: c.CompletedAt,
	}
	k.lastResult = result
	k.mu.Unlock()

	k.logger.Info("result computed",
		"game_id", c.GameID,
		"final_score", c.FinalScore,
		"empathy", skills.Empathy,
		"active_listening", skills.ActiveListening,
		"self_awareness", skills.SelfAwareness,
	)

	copied := *result
	k.queueEvent(domain.NewEvent(domain.EventGameCompleted, c.GameID, &copied))

	if k.submitter == nil {
		return
	}
	k.submitter.Queue(c.GameID, skills)
	k.queueEvent(domain.NewEvent(domain.EventSubmissionQueued, c.GameID, skills))
}

// LastResult returns the most recent completed game
func (k *Kiosk) LastResult() (domain.GameResult, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.lastResult == nil {
		return domain.GameResult{}, false
	}
	result := *k.lastResult
	result.TopWords = append([]domain.WordScore(nil), k.lastResult.TopWords...)
	return result, true
}

// TopWords ranks the words of the most recent completed game
func (k *Kiosk) TopWords(n int) []domain.WordScore {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.board.Top(n)
}

// TapCard hands a card identifier to the submitter. It reports whether a
// pending result is now being sent.
func (k *Kiosk) TapCard(ctx context.Context, nfcID, reader string) (bool, error) {
	k.engine.Touch()

	if k.submitter == nil {
		return false, fmt.Errorf("result submission is not configured")
	}

	started, err := k.submitter.OnIdentifier(ctx, nfcID, reader)
	if err != nil {
		return false, err
	}
	if !started {
		k.queueEvent(domain.NewEvent(domain.EventCardIgnored, "", &domain.CardTappedPayload{
			NFCID:  nfcID,
			Reader: reader,
		}))
	}
	return started, nil
}

// PendingSubmission returns the result waiting for a card, if any
func (k *Kiosk) PendingSubmission() (submit.Pending, bool) {
	if k.submitter == nil {
		return submit.Pending{}, false
	}
	return k.submitter.Pending()
}

// RoundTallies returns what is persisted for a round, or its defaults
func (k *Kiosk) RoundTallies(ctx context.Context, round int) (*RoundTallies, error) {
	rounds := k.engine.Rounds()
	if round < 0 || round >= len(rounds) {
		return nil, domain.ErrInvalidRound
	}

	view := &RoundTallies{Round: round}
	var tallies []domain.WordTally
	if k.store != nil {
		stored, err := k.store.Tallies(ctx, round)
		switch {
		case err == nil && len(stored) > 0:
			tallies = domain.SanitizeTallies(stored)
			view.Stored = true
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}
	if tallies == nil {
		tallies = domain.DefaultTallies(rounds[round].Texts())
	}

	view.Tallies = tallies
	view.Cloud = domain.CloudWeights(tallies)
	return view, nil
}

// ResetScores deletes every persisted tally
func (k *Kiosk) ResetScores(ctx context.Context) error {
	if k.store == nil {
		return nil
	}
	if err := k.store.ResetAll(ctx); err != nil {
		return err
	}
	k.queueEvent(domain.NewEvent(domain.EventScoresReset, "", nil))
	return nil
}

// queueEvent adds an event to the broadcast queue
func (k *Kiosk) queueEvent(event *domain.GameEvent) {
	select {
	case k.events <- event:
	default:
		k.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop broadcasts events and applies submission results
func (k *Kiosk) eventLoop() {
	defer k.wg.Done()

	var results <-chan submit.Result
	if k.submitter != nil {
		results = k.submitter.Results()
	}

	for {
		select {
		case <-k.done:
			return
		case event := <-k.events:
			k.broadcastEvent(event)
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			k.handleSubmissionResult(res)
		}
	}
}

// handleSubmissionResult turns a delivery outcome into the thank-you or
// failure event. Only the event loop calls it.
func (k *Kiosk) handleSubmissionResult(res submit.Result) {
	payload := &domain.SubmissionResultPayload{
		NFCID:      res.NFCID,
		StatusCode: res.StatusCode,
	}

	if !res.Succeeded() {
		payload.Error = res.Err.Error()
		k.broadcastEvent(domain.NewEvent(domain.EventSubmissionFailed, res.Game, payload))
		return
	}

	k.mu.Lock()
	if k.lastResult != nil && k.lastResult.GameID == res.Game {
		k.lastResult.Submitted = true
		k.lastResult.SubmittedToID = res.NFCID
	}
	k.mu.Unlock()

	k.broadcastEvent(domain.NewEvent(domain.EventSubmissionSucceeded, res.Game, payload))
}

// broadcastEvent sends an event to every screen
func (k *Kiosk) broadcastEvent(event *domain.GameEvent) {
	k.clientsMu.RLock()
	defer k.clientsMu.RUnlock()

	for clientID, client := range k.clients {
		if err := client.Send(event); err != nil {
			k.logger.Debug("failed to send to client", "client_id", clientID, "error", err)
		}
	}
}

// inactivityLoop returns the kiosk to its attract screen when nobody has
// touched it for the configured timeout
func (k *Kiosk) inactivityLoop() {
	defer k.wg.Done()

	interval := k.cfg.InactivityTimeout / 4
	if interval > time.Second || interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.done:
			return
		case now := <-ticker.C:
			k.checkInactivity(now)
		}
	}
}

// checkInactivity abandons the current game if it has been idle too long
func (k *Kiosk) checkInactivity(now time.Time) {
	if k.engine.Phase() == domain.PhaseIdle {
		return
	}
	if idle := k.engine.IdleFor(now); idle >= k.cfg.InactivityTimeout {
		k.engine.Abandon(fmt.Sprintf("inactive for %s", idle.Truncate(time.Second)))
	}
}

// Close shuts down the kiosk
func (k *Kiosk) Close() {
	k.once.Do(func() {
		close(k.done)
	})
	k.wg.Wait()

	// Close all client connections
	k.clientsMu.Lock()
	for _, client := range k.clients {
		client.Close()
	}
	k.clients = make(map[string]ClientConnection)
	k.clientsMu.Unlock()
}
