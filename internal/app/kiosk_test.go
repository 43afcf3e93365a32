package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"empatia/internal/domain"
	"empatia/internal/i18n"
	"empatia/internal/storage"
	"empatia/internal/storage/jsonfile"
	"empatia/internal/submit"
)

// fakeClient records broadcast events
type fakeClient struct {
	id     string
	events chan *domain.GameEvent
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id, events: make(chan *domain.GameEvent, 64)}
}

func (c *fakeClient) Send(message interface{}) error {
	if ev, ok := message.(*domain.GameEvent); ok {
		c.events <- ev
	}
	return nil
}

func (c *fakeClient) GetClientID() string { return c.id }
func (c *fakeClient) Close() error        { return nil }

func (c *fakeClient) waitFor(t *testing.T, want domain.EventType) *domain.GameEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-c.events:
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
			return nil
		}
	}
}

type backendCall struct {
	path    string
	payload submit.Payload
}

func newRecordingBackend(t *testing.T) (*httptest.Server, func() []backendCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []backendCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p submit.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		calls = append(calls, backendCall{path: r.URL.Path, payload: p})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []backendCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]backendCall(nil), calls...)
	}
}

type kioskFixture struct {
	kiosk     *Kiosk
	store     *storage.WordScoreStore
	submitter *submit.Submitter
	client    *fakeClient
}

func newKioskFixture(t *testing.T, policy domain.Policy, backendURL string) *kioskFixture {
	t.Helper()
	backend, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewWordScoreStore(backend, testLogger())
	sub, err := submit.New(submit.Config{BaseURL: backendURL, GameID: 3, Timeout: 2 * time.Second}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	engine := NewRoundEngine(domain.DefaultRounds(), policy, store, testLogger())
	k := NewKiosk(engine, store, sub, i18n.Empty(), KioskConfig{}, testLogger())
	client := newFakeClient("screen-1")
	k.RegisterClient(client)
	t.Cleanup(func() {
		sub.Close()
		k.Close()
	})
	return &kioskFixture{kiosk: k, store: store, submitter: sub, client: client}
}

func (f *kioskFixture) playRound(t *testing.T, indices ...int) *domain.RoundOutcome {
	t.Helper()
	ctx := context.Background()
	for _, i := range indices {
		if _, err := f.kiosk.ToggleWord(i); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}
	outcome, err := f.kiosk.ConfirmRound(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if f.kiosk.Engine().Policy().HasSummaryContinueStep {
		if err := f.kiosk.Continue(ctx); err != nil {
			t.Fatalf("continue: %v", err)
		}
	}
	return outcome
}

func TestFullGameSubmitsOnCardTap(t *testing.T) {
	srv, calls := newRecordingBackend(t)
	f := newKioskFixture(t, domain.DefaultPolicy(), srv.URL)
	ctx := context.Background()
	tag := i18n.Portuguese

	if _, err := f.kiosk.StartGame(ctx, tag); err != nil {
		t.Fatalf("start: %v", err)
	}

	// round 0: Adaptação (empathetic) and Desengajado (not)
	outcome := f.playRound(t, 0, 4)
	if outcome.TotalEmpathyScore != 1 {
		t.Errorf("after round 0: got total %d, want 1", outcome.TotalEmpathyScore)
	}
	round0 := f.store.Load(ctx, 0, domain.DefaultRounds()[0].Texts())
	if round0[0].CumulativePoints != 2 || round0[4].CumulativePoints != 2 || round0[1].CumulativePoints != 1 {
		t.Errorf("round 0 tallies: got %+v", round0)
	}

	// round 1: Desleixo (not) and Resiliência (empathetic)
	f.playRound(t, 0, 1)
	// round 2: Improdutividade (not) and Resolução de problemas (empathetic)
	f.playRound(t, 0, 1)

	completed := f.client.waitFor(t, domain.EventGameCompleted)
	result, ok := completed.Payload.(*domain.GameResult)
	if !ok {
		t.Fatalf("got payload %T, want *domain.GameResult", completed.Payload)
	}
	want := domain.SkillScores{Empathy: 6, ActiveListening: 5, SelfAwareness: 4}
	if result.FinalScore != 3 || result.Skills != want {
		t.Errorf("got score %d skills %+v, want 3 %+v", result.FinalScore, result.Skills, want)
	}

	if _, ok := f.kiosk.PendingSubmission(); !ok {
		t.Fatal("no pending submission after completion")
	}

	started, err := f.kiosk.TapCard(ctx, "CARD123", "reader-1")
	if err != nil || !started {
		t.Fatalf("tap: started=%v err=%v", started, err)
	}
	f.client.waitFor(t, domain.EventSubmissionSucceeded)

	got := calls()
	if len(got) != 1 {
		t.Fatalf("got %d backend calls, want 1", len(got))
	}
	if got[0].path != "/users/CARD123" {
		t.Errorf("got path %q", got[0].path)
	}
	wantPayload := submit.Payload{NFCID: "CARD123", GameID: 3, Skill1: 6, Skill2: 5, Skill3: 4}
	if got[0].payload != wantPayload {
		t.Errorf("got payload %+v, want %+v", got[0].payload, wantPayload)
	}

	last, ok := f.kiosk.LastResult()
	if !ok || !last.Submitted || last.SubmittedToID != "CARD123" {
		t.Errorf("got last result %+v, want submitted to CARD123", last)
	}
}

func TestTopWordsOfCompletedGame(t *testing.T) {
	srv, _ := newRecordingBackend(t)
	f := newKioskFixture(t, domain.DefaultPolicy(), srv.URL)
	f.kiosk.StartGame(context.Background(), i18n.Portuguese)
	f.playRound(t, 0, 4)
	f.playRound(t, 0, 1)
	f.playRound(t, 0, 1)
	f.client.waitFor(t, domain.EventGameCompleted)

	want := []string{"Resolução de problemas", "Empatia", "Respeito ao cliente", "Compromisso", "Adaptação"}
	got := f.kiosk.TopWords(5)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Word != want[i] {
			t.Errorf("rank %d: got %q, want %q", i, got[i].Word, want[i])
		}
	}
	if got[0].Score != 6 || got[4].Score != 5 {
		t.Errorf("got scores %d and %d, want 6 and 5", got[0].Score, got[4].Score)
	}

	if all := f.kiosk.TopWords(100); len(all) != 12 {
		t.Errorf("got %d words, want all 12", len(all))
	}
}

func TestCardTapWithoutResultIsIgnored(t *testing.T) {
	srv, calls := newRecordingBackend(t)
	f := newKioskFixture(t, domain.DefaultPolicy(), srv.URL)

	started, err := f.kiosk.TapCard(context.Background(), "CARD123", "reader-1")
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if started {
		t.Error("delivery started without a finished game")
	}
	ev := f.client.waitFor(t, domain.EventCardIgnored)
	if p, ok := ev.Payload.(*domain.CardTappedPayload); !ok || p.NFCID != "CARD123" {
		t.Errorf("got payload %+v", ev.Payload)
	}

	f.submitter.Close()
	if n := len(calls()); n != 0 {
		t.Errorf("got %d backend calls, want 0", n)
	}
}

func TestSubmissionFailureIsBroadcast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newKioskFixture(t, domain.Policy{RequireMinimumSelection: false}, srv.URL)
	ctx := context.Background()
	f.kiosk.StartGame(ctx, i18n.Portuguese)
	for round := 0; round < domain.RoundCount; round++ {
		f.playRound(t)
	}
	f.client.waitFor(t, domain.EventGameCompleted)

	f.kiosk.TapCard(ctx, "CARD9", "")
	ev := f.client.waitFor(t, domain.EventSubmissionFailed)
	p, ok := ev.Payload.(*domain.SubmissionResultPayload)
	if !ok || p.StatusCode != http.StatusServiceUnavailable || p.Error == "" {
		t.Errorf("got payload %+v", ev.Payload)
	}

	last, _ := f.kiosk.LastResult()
	if last.Submitted {
		t.Error("failed delivery marked as submitted")
	}
	if _, ok := f.kiosk.PendingSubmission(); ok {
		t.Error("failed submission kept for retry")
	}
}

func TestRoundTalliesAndReset(t *testing.T) {
	srv, _ := newRecordingBackend(t)
	f := newKioskFixture(t, domain.DefaultPolicy(), srv.URL)
	ctx := context.Background()

	view, err := f.kiosk.RoundTallies(ctx, 0)
	if err != nil {
		t.Fatalf("tallies: %v", err)
	}
	if view.Stored || len(view.Tallies) != domain.WordsPerRound {
		t.Errorf("got stored=%v len=%d, want defaults", view.Stored, len(view.Tallies))
	}
	for _, c := range view.Cloud {
		if c.Weight != 0.5 {
			t.Errorf("%s: got weight %v, want 0.5", c.Text, c.Weight)
		}
	}

	f.kiosk.StartGame(ctx, i18n.Portuguese)
	f.playRound(t, 2)

	view, err = f.kiosk.RoundTallies(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !view.Stored || view.Tallies[2].CumulativePoints != 2 {
		t.Errorf("got %+v, want stored tally of 2 for word 2", view)
	}
	if view.Cloud[2].Weight != 1 || view.Cloud[0].Weight != 0 {
		t.Errorf("got weights %v and %v, want 1 and 0", view.Cloud[2].Weight, view.Cloud[0].Weight)
	}

	if err := f.kiosk.ResetScores(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	f.client.waitFor(t, domain.EventScoresReset)
	view, _ = f.kiosk.RoundTallies(ctx, 0)
	if view.Stored {
		t.Error("tallies still stored after reset")
	}

	if _, err := f.kiosk.RoundTallies(ctx, 3); err == nil {
		t.Error("expected error for round 3")
	}
}

func TestSnapshotLabelsWords(t *testing.T) {
	catalog, err := i18n.Parse([]byte(`{"situation1":{"opcao1PT":"Adaptação","opcao1EN":"Adaptation"}}`))
	if err != nil {
		t.Fatal(err)
	}
	engine := NewRoundEngine(domain.DefaultRounds(), domain.DefaultPolicy(), nil, testLogger())
	k := NewKiosk(engine, nil, nil, catalog, KioskConfig{}, testLogger())
	defer k.Close()

	if _, err := k.StartGame(context.Background(), i18n.English); err != nil {
		t.Fatal(err)
	}
	snap := k.Snapshot(i18n.English)
	if snap.Words[0].Label != "Adaptation" {
		t.Errorf("got label %q, want Adaptation", snap.Words[0].Label)
	}
	if snap.Words[1].Label != "" {
		t.Errorf("got label %q for unlabelled word", snap.Words[1].Label)
	}
}

func TestInactivityAbandonsGame(t *testing.T) {
	engine := NewRoundEngine(domain.DefaultRounds(), domain.DefaultPolicy(), nil, testLogger())
	k := NewKiosk(engine, nil, nil, nil, KioskConfig{InactivityTimeout: time.Hour}, testLogger())
	defer k.Close()
	client := newFakeClient("screen")
	k.RegisterClient(client)

	k.StartGame(context.Background(), i18n.Portuguese)
	k.checkInactivity(time.Now())
	if engine.Phase() != domain.PhaseRoundActive {
		t.Fatalf("game abandoned before timeout")
	}

	k.checkInactivity(time.Now().Add(2 * time.Hour))
	if engine.Phase() != domain.PhaseIdle {
		t.Errorf("got phase %s, want IDLE", engine.Phase())
	}
	client.waitFor(t, domain.EventGameAbandoned)
}

func TestCancelledStartKeepsStoredTallies(t *testing.T) {
	backend, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rounds := domain.DefaultRounds()
	seeded := domain.DefaultTallies(rounds[0].Texts())
	seeded[0].CumulativePoints = 50
	if err := backend.Write(context.Background(), 0, seeded); err != nil {
		t.Fatal(err)
	}

	store := storage.NewWordScoreStore(backend, testLogger())
	engine := NewRoundEngine(rounds, domain.DefaultPolicy(), store, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.StartGame(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustToggle(t, engine, 0)
	if _, err := engine.ConfirmRound(context.Background()); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	stored, err := store.Tallies(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := stored[0].CumulativePoints; got != 51 {
		t.Errorf("got %d, want 51", got)
	}
}

func TestReconnectedScreenSurvivesStaleUnregister(t *testing.T) {
	engine := NewRoundEngine(domain.DefaultRounds(), domain.DefaultPolicy(), nil, testLogger())
	k := NewKiosk(engine, nil, nil, nil, KioskConfig{}, testLogger())
	defer k.Close()

	stale := newFakeClient("screen")
	live := newFakeClient("screen")
	k.RegisterClient(stale)
	k.RegisterClient(live)

	k.UnregisterClient(stale)
	if got := k.ClientCount(); got != 1 {
		t.Fatalf("got %d clients, want 1", got)
	}

	if _, err := k.StartGame(context.Background(), i18n.Portuguese); err != nil {
		t.Fatal(err)
	}
	live.waitFor(t, domain.EventGameStarted)

	k.UnregisterClient(live)
	if got := k.ClientCount(); got != 0 {
		t.Errorf("got %d clients, want 0", got)
	}
}
