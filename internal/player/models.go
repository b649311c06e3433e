package player

import (
	"time"
)

// ChosenControl is a control the player currently holds, with the time
// it was bought. Protection degrades a fixed window after purchase.
type ChosenControl struct {
	ControlID string    `json:"control_id"`
	ChosenAt  time.Time `json:"chosen_at"`
}

// AffectedControl is a control temporarily suspended by a situation
// outcome. It contributes nothing to defense until the deadline passes.
type AffectedControl struct {
	ControlID string    `json:"control_id"`
	Until     time.Time `json:"until"`
}

// CompletedProject records a finished one-time project.
type CompletedProject struct {
	ProjectID   string    `json:"project_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// SituationRecord records a resolved situation. EffectiveOptionID differs
// from OptionID when the player could not afford their pick and was
// forced onto the default option.
type SituationRecord struct {
	SituationID       string    `json:"situation_id"`
	OptionID          string    `json:"option_id"`
	EffectiveOptionID string    `json:"effective_option_id"`
	InsufficientFunds bool      `json:"insufficient_funds,omitempty"`
	ResolvedAt        time.Time `json:"resolved_at"`
}

// BudgetGrant records one approved funding request.
type BudgetGrant struct {
	Amount    float64   `json:"amount"`
	GrantedAt time.Time `json:"granted_at"`
}

// AttackRecord is the settled outcome of one attack against this player.
type AttackRecord struct {
	ThreatName      string    `json:"threat_name"`
	Succeeded       bool      `json:"succeeded"`
	Earning         float64   `json:"earning"`
	ExpectedEarning float64   `json:"expected_earning"`
	Loss            float64   `json:"loss"`
	SettledAt       time.Time `json:"settled_at"`
}

// LevelRecord is the per-level snapshot taken when an attack settles:
// the defenses the player held, how effective they were, and the
// production figures at that moment.
type LevelRecord struct {
	ThreatName            string    `json:"threat_name"`
	Succeeded             bool      `json:"succeeded"`
	ChosenControls        []string  `json:"chosen_controls,omitempty"`
	MaxEffectiveControl   string    `json:"max_effective_control,omitempty"`
	MaxEffectiveness      float64   `json:"max_effectiveness"`
	CombinedEffectiveness float64   `json:"combined_effectiveness"`
	Uptime                float64   `json:"uptime"`
	Production            float64   `json:"production"`
	SettledAt             time.Time `json:"settled_at"`
}

// State is the full per-player game document. It is stored as a single
// jsonb value and always mutated under a row lock, so every field change
// within one update is atomic with respect to other engines.
type State struct {
	InitialBudget float64 `json:"initial_budget"`
	// BudgetLeft stays nil until the first spend; CurrentBudget folds
	// the two fields together.
	BudgetLeft     *float64 `json:"budget_left,omitempty"`
	ApplyForBudget bool     `json:"apply_for_budget"`

	// IsPlaying marks the player as mid-level: an attack has been
	// announced and not yet settled against them.
	IsPlaying bool `json:"is_playing"`

	Controls []ChosenControl `json:"controls,omitempty"`
	// ControlHistory keeps every control id ever selected, including
	// ones whose protection has since degraded. Re-selection is checked
	// against the history, not the active list.
	ControlHistory   []string          `json:"control_history,omitempty"`
	ObsoleteControls []string          `json:"obsolete_controls,omitempty"`
	AffectedControls []AffectedControl `json:"affected_controls,omitempty"`

	Projects   []CompletedProject `json:"projects,omitempty"`
	Situations []SituationRecord  `json:"situations,omitempty"`

	BudgetGrants  []BudgetGrant          `json:"budget_grants,omitempty"`
	AttackHistory []AttackRecord         `json:"attack_history,omitempty"`
	Levels        map[string]LevelRecord `json:"levels,omitempty"`

	AttacksSuccessful int `json:"attacks_successful"`
	AttacksMitigated  int `json:"attacks_mitigated"`

	DowntimeMinutes       float64 `json:"downtime_minutes"`
	UptimeMinutes         float64 `json:"uptime_minutes"`
	ExpectedUptimeMinutes float64 `json:"expected_uptime_minutes"`

	ProductionAmount   float64 `json:"production_amount"`
	ExpectedProduction float64 `json:"expected_production"`
	ProductionLoss     float64 `json:"production_loss"`
	LossDueToAttack    float64 `json:"loss_due_to_attack"`

	JoinedAt       time.Time `json:"joined_at"`
	StatsUpdatedAt time.Time `json:"stats_updated_at"`
}

// NewState builds the starting document for a player who just joined.
func NewState(initialBudget float64, now time.Time) *State {
	return &State{
		InitialBudget:  initialBudget,
		JoinedAt:       now,
		StatsUpdatedAt: now,
	}
}

// CurrentBudget returns the spendable budget, falling back to the
// initial allocation when nothing has been spent yet.
func (s *State) CurrentBudget() float64 {
	if s.BudgetLeft == nil {
		return s.InitialBudget
	}
	return *s.BudgetLeft
}

// SetBudget overwrites the spendable budget.
func (s *State) SetBudget(amount float64) {
	s.BudgetLeft = &amount
}

// Spend deducts the amount from the current budget.
func (s *State) Spend(amount float64) {
	s.SetBudget(s.CurrentBudget() - amount)
}

// HasSelected reports whether the control id appears anywhere in the
// player's selection history.
func (s *State) HasSelected(controlID string) bool {
	for _, id := range s.ControlHistory {
		if id == controlID {
			return true
		}
	}
	return false
}

// IsObsolete reports whether a situation outcome permanently removed the
// control's protection.
func (s *State) IsObsolete(controlID string) bool {
	for _, id := range s.ObsoleteControls {
		if id == controlID {
			return true
		}
	}
	return false
}

// IsAffected reports whether the control is suspended at the given time.
func (s *State) IsAffected(controlID string, now time.Time) bool {
	for _, affected := range s.AffectedControls {
		if affected.ControlID == controlID && now.Before(affected.Until) {
			return true
		}
	}
	return false
}

// HasCompletedProject reports whether the project was already done.
func (s *State) HasCompletedProject(projectID string) bool {
	for _, project := range s.Projects {
		if project.ProjectID == projectID {
			return true
		}
	}
	return false
}

// ResolvedSituation returns the record for the given situation/option
// pair if this exact pair was already resolved.
func (s *State) ResolvedSituation(situationID, optionID string) *SituationRecord {
	for i := range s.Situations {
		record := &s.Situations[i]
		if record.SituationID == situationID && record.OptionID == optionID {
			return record
		}
	}
	return nil
}

// HasResolvedSituation reports whether the situation was resolved with
// any option.
func (s *State) HasResolvedSituation(situationID string) bool {
	for _, record := range s.Situations {
		if record.SituationID == situationID {
			return true
		}
	}
	return false
}

// PruneAffectedControls drops suspensions whose deadline has passed.
func (s *State) PruneAffectedControls(now time.Time) {
	if len(s.AffectedControls) == 0 {
		return
	}
	kept := s.AffectedControls[:0]
	for _, affected := range s.AffectedControls {
		if now.Before(affected.Until) {
			kept = append(kept, affected)
		}
	}
	s.AffectedControls = kept
}
