package situation

import (
	"context"
	"testing"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/errors"
)

type memStore struct {
	states map[string]*player.State
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
	return nil, nil
}

func (m *memStore) Update(_ context.Context, playerID string, mutate func(*player.State) error) (*player.State, error) {
	state, ok := m.states[playerID]
	if !ok {
		return nil, errors.NotFoundf("player %s not found", playerID)
	}
	if err := mutate(state); err != nil {
		return nil, err
	}
	return state, nil
}

type staticCatalog struct {
	controls   map[string]catalog.Control
	situations map[string]catalog.Situation
}

func (s *staticCatalog) Controls(context.Context) (map[string]catalog.Control, error) {
	return s.controls, nil
}

func (s *staticCatalog) Threats(context.Context) (map[string]catalog.Threat, error) {
	return nil, nil
}

func (s *staticCatalog) Situations(context.Context) (map[string]catalog.Situation, error) {
	return s.situations, nil
}

func (s *staticCatalog) Projects(context.Context) (map[string]catalog.Project, error) {
	return nil, nil
}

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(state *player.State) (*Service, *player.State) {
	store := &memStore{states: map[string]*player.State{"p1": state}}
	catalogs := &staticCatalog{
		controls: map[string]catalog.Control{
			"c1": {ID: "c1", Cost: 200},
			"c2": {ID: "c2", Cost: 350},
		},
		situations: map[string]catalog.Situation{
			"s1": {
				ID: "s1",
				Options: map[string]catalog.Option{
					"1": {ID: "1", Effect: catalog.Effect{Kind: catalog.EffectCost, Cost: 500}},
					"2": {ID: "2", Effect: catalog.Effect{Kind: catalog.EffectCost, Cost: 5000}},
					"3": {ID: "3", Effect: catalog.Effect{Kind: catalog.EffectObsoleteControls, ControlIDs: []string{"c1"}}},
					"4": {ID: "4", Effect: catalog.Effect{Kind: catalog.EffectAffectedControls, ControlIDs: []string{"c2"}, AffectedMinutes: 10}},
					"5": {ID: "5", Effect: catalog.Effect{Kind: catalog.EffectDowntime, DowntimeMinutes: 4}},
				},
			},
		},
	}
	game := config.GameConfig{FundingThreshold: 1000}

	service := NewService(store, catalogs, game)
	service.now = func() time.Time { return testTime }
	return service, state
}

func TestResolveCostOption(t *testing.T) {
	service, state := newTestService(player.NewState(3000, testTime))

	result, err := service.Resolve(context.Background(), "p1", "s1", "1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if result.BudgetLeft != 2500 {
		t.Errorf("budget left = %v, want 2500", result.BudgetLeft)
	}
	if result.InsufficientFunds {
		t.Error("affordable option should not flag insufficient funds")
	}
	if len(state.Situations) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(state.Situations))
	}
}

func TestResolveCostFallbackToDefaultOption(t *testing.T) {
	// Option 2 costs 5000 against a 3000 budget; the engine falls back
	// to option 1 and deducts that option's cost instead.
	service, state := newTestService(player.NewState(3000, testTime))

	result, err := service.Resolve(context.Background(), "p1", "s1", "2")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if !result.InsufficientFunds {
		t.Error("expected insufficient_funds flag")
	}
	if result.EffectiveOptionID != "1" {
		t.Errorf("effective option = %q, want the default option", result.EffectiveOptionID)
	}
	if result.BudgetLeft != 2500 {
		t.Errorf("budget left = %v, want 2500 (the fallback option's cost)", result.BudgetLeft)
	}

	record := state.Situations[0]
	if record.OptionID != "2" || record.EffectiveOptionID != "1" || !record.InsufficientFunds {
		t.Errorf("audit entry = %+v, want requested 2 resolved as 1 with the flag set", record)
	}
}

func TestResolveIdempotentPair(t *testing.T) {
	service, state := newTestService(player.NewState(3000, testTime))

	if _, err := service.Resolve(context.Background(), "p1", "s1", "1"); err != nil {
		t.Fatalf("first Resolve returned error: %v", err)
	}

	result, err := service.Resolve(context.Background(), "p1", "s1", "1")
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}

	if !result.AlreadyResolved {
		t.Error("retry should report already_resolved")
	}
	if result.BudgetLeft != 2500 {
		t.Errorf("budget after retry = %v, want 2500 (no double deduction)", result.BudgetLeft)
	}
	if len(state.Situations) != 1 {
		t.Errorf("audit entries = %d, want 1", len(state.Situations))
	}
}

func TestResolveObsoleteControls(t *testing.T) {
	service, state := newTestService(player.NewState(3000, testTime))

	if _, err := service.Resolve(context.Background(), "p1", "s1", "3"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if !state.IsObsolete("c1") {
		t.Error("c1 should be marked obsolete")
	}
	if state.CurrentBudget() != 3000 {
		t.Errorf("budget = %v, want unchanged 3000", state.CurrentBudget())
	}
}

func TestResolveTemporarilyAffectedControls(t *testing.T) {
	service, state := newTestService(player.NewState(3000, testTime))

	if _, err := service.Resolve(context.Background(), "p1", "s1", "4"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if !state.IsAffected("c2", testTime.Add(9*time.Minute)) {
		t.Error("c2 should be suspended inside the window")
	}
	if state.IsAffected("c2", testTime.Add(11*time.Minute)) {
		t.Error("c2 should recover after the window")
	}
}

func TestResolveDowntimeOption(t *testing.T) {
	service, state := newTestService(player.NewState(3000, testTime))

	if _, err := service.Resolve(context.Background(), "p1", "s1", "5"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if state.DowntimeMinutes != 4 {
		t.Errorf("downtime = %v, want 4", state.DowntimeMinutes)
	}
}

func TestResolveCostFallbackClampsAtZeroBudget(t *testing.T) {
	// Even the default option costs more than what is left; the budget
	// bottoms out at zero instead of going negative.
	service, state := newTestService(player.NewState(300, testTime))

	result, err := service.Resolve(context.Background(), "p1", "s1", "2")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if !result.InsufficientFunds {
		t.Error("expected insufficient_funds flag")
	}
	if result.BudgetLeft != 0 {
		t.Errorf("budget left = %v, want 0", result.BudgetLeft)
	}
	if state.CurrentBudget() < 0 {
		t.Errorf("budget = %v, must never go negative", state.CurrentBudget())
	}
}

func TestResolveRejectsWhileAttackPending(t *testing.T) {
	state := player.NewState(3000, testTime)
	state.IsPlaying = true

	service, _ := newTestService(state)

	_, err := service.Resolve(context.Background(), "p1", "s1", "1")
	if !errors.Is(err, errors.ErrorTypeConflict) {
		t.Fatalf("error type = %v, want conflict", errors.GetType(err))
	}
	if len(state.Situations) != 0 {
		t.Error("rejected resolution must not record an audit entry")
	}
}

func TestResolveUnknownReferences(t *testing.T) {
	service, _ := newTestService(player.NewState(3000, testTime))

	if _, err := service.Resolve(context.Background(), "p1", "nope", "1"); !errors.Is(err, errors.ErrorTypeUnknownReference) {
		t.Errorf("unknown situation error type = %v, want unknown_reference", errors.GetType(err))
	}
	if _, err := service.Resolve(context.Background(), "p1", "s1", "99"); !errors.Is(err, errors.ErrorTypeUnknownReference) {
		t.Errorf("unknown option error type = %v, want unknown_reference", errors.GetType(err))
	}
}
