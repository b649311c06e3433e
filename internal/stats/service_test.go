package stats

import (
	"context"
	"testing"
	"time"

	"cyberrange-server/internal/player"
	"cyberrange-server/internal/session"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

type memStore struct {
	states  map[string]*player.State
	failing map[string]bool
}

func (m *memStore) Create(_ context.Context, playerID string, state *player.State) error {
	m.states[playerID] = state
	return nil
}

func (m *memStore) Get(_ context.Context, playerID string) (*player.State, error) {
	state, ok := m.states[playerID]
	if !ok {
		return nil, errors.NotFoundf("player %s not found", playerID)
	}
	return state, nil
}

func (m *memStore) ListIDs(_ context.Context) ([]string, error) {
	var ids []string
	for _, id := range []string{"p1", "p2"} {
		if _, ok := m.states[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) Update(_ context.Context, playerID string, mutate func(*player.State) error) (*player.State, error) {
	if m.failing[playerID] {
		return nil, errors.WrapUnavailable("store is down", nil)
	}
	state, ok := m.states[playerID]
	if !ok {
		return nil, errors.NotFoundf("player %s not found", playerID)
	}
	if err := mutate(state); err != nil {
		return nil, err
	}
	return state, nil
}

type memSessionStore struct {
	session *session.Session
}

func (m *memSessionStore) Get(context.Context) (*session.Session, error) {
	return m.session, nil
}

func (m *memSessionStore) Update(_ context.Context, mutate func(*session.Session) error) (*session.Session, error) {
	if err := mutate(m.session); err != nil {
		return nil, err
	}
	return m.session, nil
}

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(sess *session.Session, store *memStore) *Service {
	service := NewService(store, &memSessionStore{session: sess}, config.GameConfig{ProductionPerMinute: 100})
	service.now = func() time.Time { return testTime }
	return service
}

func activeSession(startedAgo time.Duration) *session.Session {
	startedAt := testTime.Add(-startedAgo)
	return &session.Session{Active: true, StartedAt: &startedAt}
}

func TestRecalculateRefreshesTimeDerivedStats(t *testing.T) {
	store := &memStore{states: map[string]*player.State{}, failing: map[string]bool{}}
	state := player.NewState(15000, testTime.Add(-20*time.Minute))
	state.DowntimeMinutes = 5
	state.AttacksSuccessful = 2
	store.states["p1"] = state

	service := newTestService(activeSession(30*time.Minute), store)

	summary, err := service.Recalculate(context.Background())
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if summary.Refreshed != 1 {
		t.Fatalf("refreshed = %d, want 1", summary.Refreshed)
	}

	// The player joined after session start, so their own join time wins.
	if state.ExpectedUptimeMinutes != 20 {
		t.Errorf("expected uptime = %v, want 20", state.ExpectedUptimeMinutes)
	}
	if state.UptimeMinutes != 15 {
		t.Errorf("uptime = %v, want 15", state.UptimeMinutes)
	}
	if state.ProductionAmount != 1500 {
		t.Errorf("production = %v, want 1500", state.ProductionAmount)
	}
	if state.ExpectedProduction != 2000 {
		t.Errorf("expected production = %v, want 2000", state.ExpectedProduction)
	}
	if state.ProductionLoss != 500 {
		t.Errorf("production loss = %v, want 500", state.ProductionLoss)
	}

	// History and counters stay untouched.
	if state.AttacksSuccessful != 2 {
		t.Errorf("attack counter = %d, want unchanged 2", state.AttacksSuccessful)
	}
}

func TestRecalculatePrunesExpiredSuspensions(t *testing.T) {
	store := &memStore{states: map[string]*player.State{}, failing: map[string]bool{}}
	state := player.NewState(15000, testTime.Add(-20*time.Minute))
	state.AffectedControls = []player.AffectedControl{
		{ControlID: "expired", Until: testTime.Add(-time.Minute)},
		{ControlID: "live", Until: testTime.Add(time.Minute)},
	}
	store.states["p1"] = state

	service := newTestService(activeSession(30*time.Minute), store)

	if _, err := service.Recalculate(context.Background()); err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}

	if len(state.AffectedControls) != 1 || state.AffectedControls[0].ControlID != "live" {
		t.Errorf("affected controls = %v, want only the live suspension", state.AffectedControls)
	}
}

func TestRecalculateSkipsWhileSettlementPending(t *testing.T) {
	store := &memStore{states: map[string]*player.State{}, failing: map[string]bool{}}
	state := player.NewState(15000, testTime.Add(-20*time.Minute))
	state.ProductionAmount = 42
	store.states["p1"] = state

	sess := activeSession(30 * time.Minute)
	sess.PendingStatsRefresh = true

	service := newTestService(sess, store)

	summary, err := service.Recalculate(context.Background())
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if !summary.Skipped {
		t.Error("recalculation must be skipped while settlement is pending")
	}
	if state.ProductionAmount != 42 {
		t.Errorf("production = %v, want untouched 42", state.ProductionAmount)
	}
}

func TestRecalculateSkipsInactiveSession(t *testing.T) {
	store := &memStore{states: map[string]*player.State{}, failing: map[string]bool{}}
	service := newTestService(&session.Session{Active: false}, store)

	summary, err := service.Recalculate(context.Background())
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if !summary.Skipped {
		t.Error("recalculation must be skipped for an inactive session")
	}
}

func TestRecalculateIsolatesFailures(t *testing.T) {
	store := &memStore{states: map[string]*player.State{}, failing: map[string]bool{}}
	store.states["p1"] = player.NewState(15000, testTime.Add(-20*time.Minute))
	store.states["p2"] = player.NewState(15000, testTime.Add(-20*time.Minute))
	store.failing["p1"] = true

	service := newTestService(activeSession(30*time.Minute), store)

	summary, err := service.Recalculate(context.Background())
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if summary.Refreshed != 1 {
		t.Errorf("refreshed = %d, want 1", summary.Refreshed)
	}
	if _, ok := summary.Failures["p1"]; !ok {
		t.Errorf("failures = %v, want an entry for p1", summary.Failures)
	}
}
