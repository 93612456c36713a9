// Package storage holds what the outcome stores have in common.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ErrNotFound is returned when no outcome is stored under the requested ID.
var ErrNotFound = errors.New("storage: outcome not found")

// OutcomeStore persists and retrieves terminal encounter outcomes.
// Implementations satisfy encounter.OutcomeSink.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, o combat.Outcome) error
	LoadOutcome(ctx context.Context, encounterID string) (combat.Outcome, error)
	ListOutcomes(ctx context.Context, limit int) ([]OutcomeSummary, error)
}

// OutcomeSummary is the listing form of a stored outcome.
type OutcomeSummary struct {
	EncounterID string           `json:"encounterId"`
	Reason      combat.EndReason `json:"reason"`
	Winner      string           `json:"winner,omitempty"`
	Rounds      int              `json:"rounds"`
	EndedAt     time.Time        `json:"endedAt"`
}

// ErrDuplicate is returned when an outcome is already stored under the ID.
var ErrDuplicate = errors.New("storage: outcome already stored")

// Record is an outcome in column form. Log holds the action log exactly as
// encoded so the hash chain can be re-verified after a round trip.
type Record struct {
	EncounterID string
	Reason      string
	Winner      string
	Rounds      int
	Combatants  []byte
	Log         []byte
	EndedAt     time.Time
}

// NewRecord encodes o for storage.
//
// Precondition: o.EncounterID must be non-empty.
func NewRecord(o combat.Outcome) (Record, error) {
	if o.EncounterID == "" {
		return Record{}, errors.New("storage: outcome has no encounter id")
	}
	combatants, err := json.Marshal(o.Combatants)
	if err != nil {
		return Record{}, fmt.Errorf("storage: encoding combatants: %w", err)
	}
	log, err := json.Marshal(o.Log)
	if err != nil {
		return Record{}, fmt.Errorf("storage: encoding action log: %w", err)
	}
	return Record{
		EncounterID: o.EncounterID,
		Reason:      string(o.Reason),
		Winner:      o.Winner,
		Rounds:      o.Rounds,
		Combatants:  combatants,
		Log:         log,
		EndedAt:     o.EndedAt.UTC(),
	}, nil
}

// Outcome decodes r and verifies its action log.
//
// Postcondition: returns an error wrapping combat.ErrLogTampered when the
// stored log no longer verifies.
func (r Record) Outcome() (combat.Outcome, error) {
	out := combat.Outcome{
		EncounterID: r.EncounterID,
		Reason:      combat.EndReason(r.Reason),
		Winner:      r.Winner,
		Rounds:      r.Rounds,
		EndedAt:     r.EndedAt.UTC(),
	}
	if err := json.Unmarshal(r.Combatants, &out.Combatants); err != nil {
		return combat.Outcome{}, fmt.Errorf("storage: decoding combatants of %s: %w", r.EncounterID, err)
	}
	if err := json.Unmarshal(r.Log, &out.Log); err != nil {
		return combat.Outcome{}, fmt.Errorf("storage: decoding action log of %s: %w", r.EncounterID, err)
	}
	if err := combat.VerifyLog(out.Log); err != nil {
		return combat.Outcome{}, fmt.Errorf("storage: outcome %s: %w", r.EncounterID, err)
	}
	return out, nil
}

// Summary returns the listing form of r.
func (r Record) Summary() OutcomeSummary {
	return OutcomeSummary{
		EncounterID: r.EncounterID,
		Reason:      combat.EndReason(r.Reason),
		Winner:      r.Winner,
		Rounds:      r.Rounds,
		EndedAt:     r.EndedAt.UTC(),
	}
}
