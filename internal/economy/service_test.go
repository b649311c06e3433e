package economy

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

func newMemStore() *memStore {
	return &memStore{states: map[string]*player.State{}}
}

func (m *memStore) Create(_ context.Context, playerID string, state *player.State) error {
	if _, ok := m.states[playerID]; ok {
		return errors.Conflictf("player %s already exists", playerID)
	}
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
	ids := make([]string, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	return ids, nil
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
	threats    map[string]catalog.Threat
	situations map[string]catalog.Situation
	projects   map[string]catalog.Project
}

func (s *staticCatalog) Controls(context.Context) (map[string]catalog.Control, error) {
	return s.controls, nil
}

func (s *staticCatalog) Threats(context.Context) (map[string]catalog.Threat, error) {
	return s.threats, nil
}

func (s *staticCatalog) Situations(context.Context) (map[string]catalog.Situation, error) {
	return s.situations, nil
}

func (s *staticCatalog) Projects(context.Context) (map[string]catalog.Project, error) {
	return s.projects, nil
}

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		InitialBudget:    15000,
		FundingThreshold: 1000,
	}
}

func newTestService(store *memStore) *Service {
	return NewService(store, &staticCatalog{controls: testControls()}, testGameConfig())
}

func TestRequestBudgetNotEligible(t *testing.T) {
	store := newMemStore()
	state := player.NewState(15000, time.Now())
	store.states["p1"] = state

	service := newTestService(store)

	_, err := service.RequestBudget(context.Background(), "p1")
	if !errors.Is(err, errors.ErrorTypeNotEligible) {
		t.Fatalf("error type = %v, want not_eligible", errors.GetType(err))
	}
}

func TestRequestBudgetGrantTiers(t *testing.T) {
	tests := []struct {
		name       string
		production float64
		expected   float64
		wantGrant  float64
	}{
		{"high efficiency grants 10 percent", 9000, 10000, 900},
		{"mid efficiency grants 5 percent", 6000, 10000, 300},
		{"low efficiency grants 3 percent", 2000, 10000, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			state := player.NewState(15000, time.Now())
			state.SetBudget(500)
			state.ApplyForBudget = true
			state.AttacksMitigated = 1
			state.ProductionAmount = tt.production
			state.ExpectedProduction = tt.expected
			store.states["p1"] = state

			service := newTestService(store)

			result, err := service.RequestBudget(context.Background(), "p1")
			if err != nil {
				t.Fatalf("RequestBudget returned error: %v", err)
			}

			if result.Amount != tt.wantGrant {
				t.Errorf("grant = %v, want %v", result.Amount, tt.wantGrant)
			}
			if got := state.CurrentBudget(); got != 500+tt.wantGrant {
				t.Errorf("budget = %v, want %v", got, 500+tt.wantGrant)
			}
			if got := state.ProductionAmount; got != tt.production-tt.wantGrant {
				t.Errorf("production = %v, want %v", got, tt.production-tt.wantGrant)
			}
			if len(state.BudgetGrants) != 1 {
				t.Fatalf("expected one ledger entry, got %d", len(state.BudgetGrants))
			}
			if state.BudgetGrants[0].Amount != tt.wantGrant {
				t.Errorf("ledger amount = %v, want %v", state.BudgetGrants[0].Amount, tt.wantGrant)
			}
		})
	}
}

func TestRequestBudgetNoAttacksZeroEfficiency(t *testing.T) {
	store := newMemStore()
	state := player.NewState(15000, time.Now())
	state.SetBudget(500)
	state.ApplyForBudget = true
	state.ProductionAmount = 9000
	state.ExpectedProduction = 10000
	store.states["p1"] = state

	service := newTestService(store)

	result, err := service.RequestBudget(context.Background(), "p1")
	if err != nil {
		t.Fatalf("RequestBudget returned error: %v", err)
	}

	if result.Efficiency != 0 {
		t.Errorf("efficiency with no attacks = %v, want 0", result.Efficiency)
	}
	// Zero efficiency lands in the lowest tier.
	if result.Amount != 270 {
		t.Errorf("grant = %v, want 270", result.Amount)
	}
}

func TestRequestBudgetNoProductionGrantsNothing(t *testing.T) {
	store := newMemStore()
	state := player.NewState(15000, time.Now())
	state.SetBudget(500)
	state.ApplyForBudget = true
	state.AttacksSuccessful = 1
	store.states["p1"] = state

	service := newTestService(store)

	result, err := service.RequestBudget(context.Background(), "p1")
	if err != nil {
		t.Fatalf("RequestBudget returned error: %v", err)
	}

	if result.Amount != 0 {
		t.Errorf("grant with no production = %v, want 0", result.Amount)
	}
	if got := state.CurrentBudget(); got != 500 {
		t.Errorf("budget = %v, want unchanged 500", got)
	}
}
