package economy

import (
	"testing"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/player"
)

func testControls() map[string]catalog.Control {
	return map[string]catalog.Control{
		"c1": {ID: "c1", Cost: 200},
		"c2": {ID: "c2", Cost: 350},
		"c3": {ID: "c3", Cost: 150},
	}
}

func TestSufficientNoControlsUsesFlatThreshold(t *testing.T) {
	tests := []struct {
		name   string
		budget float64
		want   bool
	}{
		{"above threshold", 1500, true},
		{"at threshold", 1000, true},
		{"below threshold", 900, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := player.NewState(tt.budget, time.Now())
			if got := Sufficient(state, testControls(), 1000); got != tt.want {
				t.Errorf("Sufficient with budget %v = %v, want %v", tt.budget, got, tt.want)
			}
		})
	}
}

func TestSufficientSumsTwoCheapestRemaining(t *testing.T) {
	// c3 selected, remaining costs are 200 and 350, threshold 550.
	tests := []struct {
		name   string
		budget float64
		want   bool
	}{
		{"covers two cheapest", 550, true},
		{"covers only one", 400, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := player.NewState(15000, time.Now())
			state.ControlHistory = []string{"c3"}
			state.SetBudget(tt.budget)

			if got := Sufficient(state, testControls(), 1000); got != tt.want {
				t.Errorf("Sufficient with budget %v = %v, want %v", tt.budget, got, tt.want)
			}
		})
	}
}

func TestSufficientSingleRemainingControl(t *testing.T) {
	state := player.NewState(15000, time.Now())
	state.ControlHistory = []string{"c1", "c2"}
	state.SetBudget(150)

	if !Sufficient(state, testControls(), 1000) {
		t.Error("budget equal to the only remaining cost should be sufficient")
	}

	state.SetBudget(149)
	if Sufficient(state, testControls(), 1000) {
		t.Error("budget below the only remaining cost should be insufficient")
	}
}

func TestSufficientWholeCatalogOwned(t *testing.T) {
	state := player.NewState(15000, time.Now())
	state.ControlHistory = []string{"c1", "c2", "c3"}
	state.SetBudget(0)

	if !Sufficient(state, testControls(), 1000) {
		t.Error("a player owning the whole catalog has nothing left to buy and counts as funded")
	}
}

func TestRecomputeEligibility(t *testing.T) {
	state := player.NewState(15000, time.Now())
	state.ControlHistory = []string{"c3"}
	state.SetBudget(100)

	RecomputeEligibility(state, testControls(), 1000)
	if !state.ApplyForBudget {
		t.Error("underfunded player should be flagged for budget application")
	}

	state.SetBudget(10000)
	RecomputeEligibility(state, testControls(), 1000)
	if state.ApplyForBudget {
		t.Error("well-funded player should not be flagged")
	}
}
