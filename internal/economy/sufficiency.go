package economy

import (
	"sort"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/player"
)

// Sufficient reports whether the player's budget still covers meaningful
// purchases. The threshold is the sum of the two cheapest controls the
// player has not yet selected; with fewer than two remaining the sum of
// what remains; with nothing selected at all a flat floor applies; with
// the entire catalog owned there is nothing left to buy and the player
// counts as fully funded.
func Sufficient(state *player.State, controls map[string]catalog.Control, flatThreshold float64) bool {
	if len(state.ControlHistory) == 0 {
		return state.CurrentBudget() >= flatThreshold
	}

	var remaining []int
	for id, control := range controls {
		if !state.HasSelected(id) {
			remaining = append(remaining, control.Cost)
		}
	}
	if len(remaining) == 0 {
		return true
	}

	sort.Ints(remaining)
	threshold := remaining[0]
	if len(remaining) > 1 {
		threshold += remaining[1]
	}
	return state.CurrentBudget() >= float64(threshold)
}

// RecomputeEligibility updates the player's funding flag from the
// sufficiency check. Every economic event calls this before persisting.
func RecomputeEligibility(state *player.State, controls map[string]catalog.Control, flatThreshold float64) {
	state.ApplyForBudget = !Sufficient(state, controls, flatThreshold)
}
