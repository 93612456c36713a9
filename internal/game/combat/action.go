package combat

import "fmt"

// ActionType identifies what a combatant does with its turn.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionType int

const (
	ActionUnknown ActionType = iota // zero value; intentionally invalid
	ActionAttack
	ActionDefend
	ActionUseItem
	ActionMove
	ActionWait
)

// String returns the wire name of the ActionType.
// Postcondition: returns "ATTACK", "DEFEND", "USE_ITEM", "MOVE", "WAIT", or "UNKNOWN".
func (a ActionType) String() string {
	switch a {
	case ActionAttack:
		return "ATTACK"
	case ActionDefend:
		return "DEFEND"
	case ActionUseItem:
		return "USE_ITEM"
	case ActionMove:
		return "MOVE"
	case ActionWait:
		return "WAIT"
	default:
		return "UNKNOWN"
	}
}

// ParseActionType maps a wire name to an ActionType.
//
// Postcondition: returns an error for any name String does not produce, and for "UNKNOWN".
func ParseActionType(s string) (ActionType, error) {
	for _, t := range []ActionType{ActionAttack, ActionDefend, ActionUseItem, ActionMove, ActionWait} {
		if t.String() == s {
			return t, nil
		}
	}
	return ActionUnknown, fmt.Errorf("combat: unknown action type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a ActionType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. "UNKNOWN" decodes to
// ActionUnknown so a zero Action survives a round trip and is rejected by
// validation rather than by the decoder.
func (a *ActionType) UnmarshalText(b []byte) error {
	if string(b) == ActionUnknown.String() {
		*a = ActionUnknown
		return nil
	}
	t, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*a = t
	return nil
}

// Action is one submission against an encounter.
type Action struct {
	Type     ActionType `json:"type"`
	ActorID  string     `json:"actorId"`
	TargetID string     `json:"targetId,omitempty"`
	// Reaction marks an out-of-turn DEFEND.
	Reaction bool   `json:"reaction,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
	// Destination is the MOVE target square; nil keeps the current square.
	Destination *Position `json:"destination,omitempty"`
	// CoverID is the cover to take after a MOVE; empty leaves cover.
	CoverID string `json:"coverId,omitempty"`
}
