package combat

import (
	"slices"
	"time"
)

// CombatantOutcome is one combatant's final state.
type CombatantOutcome struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Side   string      `json:"side"`
	HP     int         `json:"hp"`
	MaxHP  int         `json:"maxHp"`
	Status WoundStatus `json:"status"`
}

// Outcome is the terminal record handed to persistence once an encounter ends.
type Outcome struct {
	EncounterID string             `json:"encounterId"`
	Reason      EndReason          `json:"reason"`
	Winner      string             `json:"winner,omitempty"`
	Rounds      int                `json:"rounds"`
	Combatants  []CombatantOutcome `json:"combatants"`
	Log         []LogEntry         `json:"log"`
	EndedAt     time.Time          `json:"endedAt"`
}

// Outcome summarises s in roster order.
//
// Precondition: s.Ended().
func (s *CombatState) Outcome(endedAt time.Time) Outcome {
	out := Outcome{
		EncounterID: s.ID,
		Reason:      s.EndReason,
		Winner:      s.Winner,
		Rounds:      s.Round,
		Log:         slices.Clone(s.Log),
		EndedAt:     endedAt.UTC(),
	}
	for _, id := range s.Roster {
		c := s.Combatants[id]
		out.Combatants = append(out.Combatants, CombatantOutcome{
			ID:     c.ID,
			Name:   c.Name,
			Side:   c.Side,
			HP:     c.HP,
			MaxHP:  c.MaxHP,
			Status: c.Status(),
		})
	}
	return out
}
