package attack

import (
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/player"
)

// Contributor names the single defense with the highest individual
// effectiveness against the settled threat. Reporting only; the success
// draw uses the combined value.
type Contributor struct {
	Name          string  `json:"name"`
	Effectiveness float64 `json:"effectiveness"`
}

// Combined computes the player's combined effectiveness against one
// threat using an independent-failure model: each qualifying defense
// independently reduces the attack's success odds, so
// combined = 1 - prod(1 - e_i). Obsolete controls contribute nothing,
// and neither do controls currently suspended by a situation outcome.
// Defenses with zero effectiveness against this threat are skipped.
func Combined(state *player.State, controls map[string]catalog.Control, projects map[string]catalog.Project, threatID string, now time.Time) (float64, Contributor) {
	failure := 1.0
	var best Contributor

	consider := func(name string, effectiveness float64) {
		if effectiveness <= 0 {
			return
		}
		failure *= 1 - effectiveness
		if effectiveness > best.Effectiveness {
			best = Contributor{Name: name, Effectiveness: effectiveness}
		}
	}

	for _, chosen := range state.Controls {
		if state.IsObsolete(chosen.ControlID) || state.IsAffected(chosen.ControlID, now) {
			continue
		}
		control, ok := controls[chosen.ControlID]
		if !ok {
			continue
		}
		consider(control.Name, control.Effectiveness[threatID])
	}

	for _, completed := range state.Projects {
		project, ok := projects[completed.ProjectID]
		if !ok {
			continue
		}
		consider(project.Name, project.Effectiveness[threatID])
	}

	return 1 - failure, best
}
