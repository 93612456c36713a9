// Package encounter hosts live combat encounters. Each encounter is owned by
// a single Actor goroutine that serializes every state mutation; participants
// submit actions concurrently and observe the results through snapshots and
// broadcast updates.
package encounter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// Config holds per-encounter timing and rules knobs.
type Config struct {
	// TurnTimeout is how long the acting combatant has before a default action is taken.
	TurnTimeout time.Duration
	// IdleTimeout ends the encounter as abandoned when no participant submits anything.
	IdleTimeout time.Duration
	// DisconnectGrace is how long a disconnected participant may take to reconnect.
	DisconnectGrace time.Duration
	// MailboxSize bounds the number of queued submissions.
	MailboxSize int
	// DodgeBonus is the evasion granted by a DEFEND action.
	DodgeBonus int
	// MoveAllowance is the base number of squares a MOVE may cover.
	MoveAllowance int
	// PersistTimeout bounds the outcome sink call.
	PersistTimeout time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:     30 * time.Second,
		IdleTimeout:     10 * time.Minute,
		DisconnectGrace: 60 * time.Second,
		MailboxSize:     64,
		DodgeBonus:      2,
		MoveAllowance:   4,
		PersistTimeout:  10 * time.Second,
	}
}

// Participant is a network client controlling zero or more combatants.
type Participant struct {
	ID         string   `json:"id"`
	Side       string   `json:"side"`
	Combatants []string `json:"combatants"`
}

// Bootstrap is everything needed to create an encounter.
type Bootstrap struct {
	// ID is optional; a UUID is generated when empty.
	ID           string                  `json:"id,omitempty"`
	Combatants   []*combat.Combatant     `json:"combatants"`
	Covers       []*combat.CoverInstance `json:"covers,omitempty"`
	Participants []Participant           `json:"participants"`
}

// Update is one broadcast to observers: the log entries appended since the
// previous update and the fully-applied snapshot they led to.
type Update struct {
	EncounterID string              `json:"encounterId"`
	Entries     []combat.LogEntry   `json:"entries"`
	Snapshot    *combat.CombatState `json:"snapshot"`
}

// Broadcaster delivers updates to remote observers.
type Broadcaster interface {
	Broadcast(ctx context.Context, u Update) error
}

// OutcomeSink persists the terminal outcome of an encounter.
type OutcomeSink interface {
	SaveOutcome(ctx context.Context, o combat.Outcome) error
}

// DecisionMaker chooses an NPC's action when its turn times out.
type DecisionMaker interface {
	DefaultAction(profile string, view scripting.TurnView) (scripting.Decision, bool)
}

// Deps are the collaborators shared by every encounter a Manager creates.
type Deps struct {
	Source      dice.Source
	Registry    *inventory.Registry
	Decisions   DecisionMaker
	Broadcaster Broadcaster
	Sink        OutcomeSink
	Tracer      trace.Tracer
	Logger      *zap.Logger
	Clock       func() time.Time
	Config      Config
}

// ActionRecord is the log payload of one resolved action.
type ActionRecord struct {
	Action        combat.Action        `json:"action"`
	ParticipantID string               `json:"participantId,omitempty"`
	Auto          bool                 `json:"auto,omitempty"`
	Attack        *combat.AttackResult `json:"attack,omitempty"`
	CoverHit      *CoverHit            `json:"coverHit,omitempty"`
	Heal          *HealRecord          `json:"heal,omitempty"`
	From          *combat.Position     `json:"from,omitempty"`
	Target        *TargetState         `json:"target,omitempty"`
}

// CoverHit records an attack absorbed by destructible cover.
type CoverHit struct {
	CoverID   string          `json:"coverId"`
	Roll      dice.RollResult `json:"roll"`
	Remaining int             `json:"remaining"`
	Destroyed bool            `json:"destroyed"`
}

// HealRecord records a consumable's effect.
type HealRecord struct {
	ItemID   string          `json:"itemId"`
	Roll     dice.RollResult `json:"roll"`
	Restored int             `json:"restored"`
}

// TargetState is a target's HP after the action.
type TargetState struct {
	ID     string             `json:"id"`
	HP     int                `json:"hp"`
	Status combat.WoundStatus `json:"status"`
}
