package session

import "time"

// Session is the single global game session document. Used threat names
// and situation ids are tracked here so each attack and situation fires
// at most once per session across all players.
type Session struct {
	Active    bool       `json:"active"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	// LastAttackAt is the announcement time of the most recent attack.
	// Situations only fire within a short window after it.
	LastAttackAt *time.Time `json:"last_attack_at,omitempty"`

	// PendingStatsRefresh blocks the periodic recalculator while an
	// attack announcement awaits settlement, so settlement math runs
	// against stats that no other writer is touching.
	PendingStatsRefresh bool `json:"pending_stats_refresh"`

	UsedThreatNames  []string `json:"used_threat_names,omitempty"`
	UsedSituationIDs []string `json:"used_situation_ids,omitempty"`
}

// HasUsedThreat reports whether a threat name was already announced
// this session.
func (s *Session) HasUsedThreat(name string) bool {
	for _, used := range s.UsedThreatNames {
		if used == name {
			return true
		}
	}
	return false
}

// HasUsedSituation reports whether a situation already fired this session.
func (s *Session) HasUsedSituation(id string) bool {
	for _, used := range s.UsedSituationIDs {
		if used == id {
			return true
		}
	}
	return false
}
