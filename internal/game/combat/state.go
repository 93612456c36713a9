package combat

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// Phase is a CombatState lifecycle stage.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseRollingInitiative
	PhaseInProgress
	PhaseResolution
	PhaseEnded
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "SETUP"
	case PhaseRollingInitiative:
		return "ROLLING_INITIATIVE"
	case PhaseInProgress:
		return "IN_PROGRESS"
	case PhaseResolution:
		return "RESOLUTION"
	case PhaseEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	for v := PhaseSetup; v <= PhaseEnded; v++ {
		if v.String() == string(b) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("combat: unknown phase %q", b)
}

// EndReason records why an encounter ended.
type EndReason string

const (
	EndNone      EndReason = ""
	EndVictory   EndReason = "VICTORY"
	EndDraw      EndReason = "DRAW"
	EndAbandoned EndReason = "ABANDONED"
	EndForfeit   EndReason = "FORFEIT"
)

// ErrWrongPhase is returned when a lifecycle method is called out of order.
var ErrWrongPhase = errors.New("combat: wrong phase")

// CoverInstance is a placed piece of cover with its remaining HP.
type CoverInstance struct {
	ID       string              `json:"id"`
	Def      *inventory.CoverDef `json:"def"`
	HP       int                 `json:"hp"`
	Position Position            `json:"position"`
}

// Destroyed reports whether destructible cover has been worn to 0 HP.
func (c *CoverInstance) Destroyed() bool {
	return c.Def.Destructible() && c.HP <= 0
}

// CombatState is the authoritative state of one encounter.
//
// Invariant: exactly one goroutine mutates a CombatState; readers receive Clone copies.
// Log is append-only.
type CombatState struct {
	ID         string                    `json:"id"`
	Phase      Phase                     `json:"phase"`
	Round      int                       `json:"round"`
	Combatants map[string]*Combatant     `json:"combatants"`
	Roster     []string                  `json:"roster"`
	Initiative []InitiativeResult        `json:"initiative,omitempty"`
	TurnOrder  []string                  `json:"turnOrder,omitempty"`
	Turn       int                       `json:"turn"`
	TurnSeq    uint64                    `json:"turnSeq"`
	Covers     map[string]*CoverInstance `json:"covers,omitempty"`
	Log        []LogEntry                `json:"log"`
	EndReason  EndReason                 `json:"endReason,omitempty"`
	Winner     string                    `json:"winner,omitempty"`
}

// NewCombatState creates a CombatState in SETUP from combatant snapshots.
//
// Combatants are cloned. A combatant with MaxHP <= 0 has MaxHP derived from
// END, PWR, and Tier. HP 0 means unset and starts the combatant at MaxHP; a
// combatant already down is bootstrapped with negative HP.
//
// Precondition: at least two combatants on at least two sides with unique non-empty IDs.
// Postcondition: Phase == PhaseSetup; Roster preserves input order.
func NewCombatState(id string, combatants []*Combatant, covers []*CoverInstance) (*CombatState, error) {
	if id == "" {
		return nil, errors.New("combat: NewCombatState: id must not be empty")
	}
	if len(combatants) < 2 {
		return nil, fmt.Errorf("combat: NewCombatState: need at least 2 combatants, got %d", len(combatants))
	}
	s := &CombatState{
		ID:         id,
		Phase:      PhaseSetup,
		Combatants: make(map[string]*Combatant, len(combatants)),
		Covers:     make(map[string]*CoverInstance, len(covers)),
	}
	sides := map[string]bool{}
	for _, c := range combatants {
		if c.ID == "" {
			return nil, errors.New("combat: NewCombatState: combatant id must not be empty")
		}
		if c.Side == "" {
			return nil, fmt.Errorf("combat: NewCombatState: combatant %q has no side", c.ID)
		}
		if _, dup := s.Combatants[c.ID]; dup {
			return nil, fmt.Errorf("combat: NewCombatState: duplicate combatant id %q", c.ID)
		}
		cp := c.Clone()
		if cp.MaxHP <= 0 {
			cp.MaxHP = MaxHP(cp.Attributes.END, cp.Attributes.PWR, cp.Tier)
		}
		if cp.HP == 0 {
			cp.HP = cp.MaxHP
		}
		s.Combatants[cp.ID] = cp
		s.Roster = append(s.Roster, cp.ID)
		sides[cp.Side] = true
	}
	if len(sides) < 2 {
		return nil, errors.New("combat: NewCombatState: need combatants on at least 2 sides")
	}
	for _, cv := range covers {
		if cv.ID == "" || cv.Def == nil {
			return nil, errors.New("combat: NewCombatState: cover requires id and definition")
		}
		if _, dup := s.Covers[cv.ID]; dup {
			return nil, fmt.Errorf("combat: NewCombatState: duplicate cover id %q", cv.ID)
		}
		cp := *cv
		s.Covers[cp.ID] = &cp
	}
	for _, c := range s.Combatants {
		if c.CoverID != "" && s.Covers[c.CoverID] == nil {
			return nil, fmt.Errorf("combat: NewCombatState: combatant %q references unknown cover %q", c.ID, c.CoverID)
		}
	}
	return s, nil
}

// Combatant returns the combatant with id.
func (s *CombatState) Combatant(id string) (*Combatant, bool) {
	c, ok := s.Combatants[id]
	return c, ok
}

// RollInitiative rolls for every combatant in roster order, fixes the turn
// order, and starts round 1.
//
// Precondition: Phase == PhaseSetup.
// Postcondition: Phase == PhaseInProgress; the turn pointer is on the first standing combatant.
func (s *CombatState) RollInitiative(src dice.Source) ([]InitiativeResult, error) {
	if s.Phase != PhaseSetup {
		return nil, fmt.Errorf("%w: RollInitiative in %s", ErrWrongPhase, s.Phase)
	}
	s.Phase = PhaseRollingInitiative
	results := make([]InitiativeResult, 0, len(s.Roster))
	for _, id := range s.Roster {
		results = append(results, RollInitiative(src, s.Combatants[id]))
	}
	SortInitiative(results)
	s.Initiative = results
	s.TurnOrder = make([]string, len(results))
	for i, r := range results {
		s.TurnOrder[i] = r.CombatantID
	}
	s.Phase = PhaseInProgress
	s.Round = 1
	s.Turn = 0
	s.TurnSeq = 1
	if !s.Combatants[s.TurnOrder[0]].IsStanding() {
		s.AdvanceTurn()
	}
	return slices.Clone(results), nil
}

// Current returns the combatant whose turn it is, or nil outside IN_PROGRESS.
func (s *CombatState) Current() *Combatant {
	if s.Phase != PhaseInProgress || len(s.TurnOrder) == 0 {
		return nil
	}
	return s.Combatants[s.TurnOrder[s.Turn]]
}

// AdvanceTurn moves the pointer to the next standing combatant, wrapping into
// a new round when it passes the end of the order.
//
// Postcondition: TurnSeq is incremented; returns true iff a new round began.
func (s *CombatState) AdvanceTurn() bool {
	s.TurnSeq++
	newRound := false
	for range s.TurnOrder {
		s.Turn++
		if s.Turn >= len(s.TurnOrder) {
			s.Turn = 0
			s.Round++
			newRound = true
		}
		if s.Combatants[s.TurnOrder[s.Turn]].IsStanding() {
			break
		}
	}
	return newRound
}

// Distance returns the grid distance between two combatants.
func (s *CombatState) Distance(a, b *Combatant) int {
	return a.Position.Distance(b.Position)
}

// CoverFor returns the intact cover c is behind, or nil.
func (s *CombatState) CoverFor(c *Combatant) *CoverInstance {
	if c.CoverID == "" {
		return nil
	}
	cv := s.Covers[c.CoverID]
	if cv == nil || cv.Destroyed() {
		return nil
	}
	return cv
}

// DamageCover reduces destructible cover HP. Destroyed cover is removed and
// every combatant sheltering behind it loses it.
//
// Postcondition: returns true iff the cover was destroyed by this call.
func (s *CombatState) DamageCover(id string, amount int) bool {
	cv := s.Covers[id]
	if cv == nil || !cv.Def.Destructible() || amount <= 0 {
		return false
	}
	cv.HP -= amount
	if !cv.Destroyed() {
		return false
	}
	delete(s.Covers, id)
	for _, c := range s.Combatants {
		if c.CoverID == id {
			c.CoverID = ""
		}
	}
	return true
}

// StandingSides returns the sorted set of sides with at least one standing combatant.
func (s *CombatState) StandingSides() []string {
	set := map[string]bool{}
	for _, c := range s.Combatants {
		if c.IsStanding() {
			set[c.Side] = true
		}
	}
	out := make([]string, 0, len(set))
	for side := range set {
		out = append(out, side)
	}
	sort.Strings(out)
	return out
}

// VictoryCheck reports whether at most one side is still standing, and the
// winning side if exactly one is.
func (s *CombatState) VictoryCheck() (over bool, winner string) {
	sides := s.StandingSides()
	switch len(sides) {
	case 0:
		return true, ""
	case 1:
		return true, sides[0]
	default:
		return false, ""
	}
}

// Resolve moves an active encounter into RESOLUTION with the given outcome.
//
// Precondition: Phase is SETUP, ROLLING_INITIATIVE, or IN_PROGRESS.
// Postcondition: Phase == PhaseResolution.
func (s *CombatState) Resolve(reason EndReason, winner string) error {
	if s.Phase >= PhaseResolution {
		return fmt.Errorf("%w: Resolve in %s", ErrWrongPhase, s.Phase)
	}
	s.Phase = PhaseResolution
	s.EndReason = reason
	s.Winner = winner
	return nil
}

// Finish moves a resolved encounter to ENDED.
//
// Precondition: Phase == PhaseResolution.
func (s *CombatState) Finish() error {
	if s.Phase != PhaseResolution {
		return fmt.Errorf("%w: Finish in %s", ErrWrongPhase, s.Phase)
	}
	s.Phase = PhaseEnded
	return nil
}

// Ended reports whether the encounter accepts no further actions.
func (s *CombatState) Ended() bool {
	return s.Phase >= PhaseResolution
}

// Clone returns a deep copy suitable for publishing to readers.
func (s *CombatState) Clone() *CombatState {
	cp := *s
	cp.Combatants = make(map[string]*Combatant, len(s.Combatants))
	for id, c := range s.Combatants {
		cp.Combatants[id] = c.Clone()
	}
	cp.Covers = make(map[string]*CoverInstance, len(s.Covers))
	for id, cv := range s.Covers {
		c := *cv
		cp.Covers[id] = &c
	}
	cp.Roster = slices.Clone(s.Roster)
	cp.Initiative = slices.Clone(s.Initiative)
	cp.TurnOrder = slices.Clone(s.TurnOrder)
	cp.Log = slices.Clone(s.Log)
	return &cp
}
