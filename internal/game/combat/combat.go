// Package combat implements the combat formula library and the authoritative
// per-encounter CombatState.
//
// Every formula in this package is pure: it reads its inputs, draws from the
// supplied dice.Source, and returns a value record. Only CombatState methods
// mutate anything, and a CombatState is owned by exactly one encounter actor.
package combat

import (
	"slices"

	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// Kind distinguishes player combatants from NPC combatants.
type Kind int

const (
	KindPlayer Kind = iota
	KindNPC
)

// String returns "player" or "npc".
func (k Kind) String() string {
	if k == KindNPC {
		return "npc"
	}
	return "player"
}

// Attributes are the five core combatant attributes.
type Attributes struct {
	PWR int `json:"pwr" yaml:"pwr"`
	AGI int `json:"agi" yaml:"agi"`
	END int `json:"end" yaml:"end"`
	VEL int `json:"vel" yaml:"vel"`
	PRC int `json:"prc" yaml:"prc"`
}

// Get returns the raw value of the named attribute, or 0 for an unknown name.
func (a Attributes) Get(attr inventory.Attribute) int {
	switch attr {
	case inventory.AttrPWR:
		return a.PWR
	case inventory.AttrAGI:
		return a.AGI
	case inventory.AttrEND:
		return a.END
	case inventory.AttrVEL:
		return a.VEL
	case inventory.AttrPRC:
		return a.PRC
	}
	return 0
}

// Skills holds the two skill levels combat cares about.
type Skills struct {
	Melee    int `json:"melee" yaml:"melee"`
	Firearms int `json:"firearms" yaml:"firearms"`
}

// AugmentBonus is the flat bonus bundle granted by cybernetic augments.
type AugmentBonus struct {
	Initiative int `json:"initiative" yaml:"initiative"`
	Attack     int `json:"attack" yaml:"attack"`
	Defense    int `json:"defense" yaml:"defense"`
	Damage     int `json:"damage" yaml:"damage"`
}

// Position is a square on the encounter grid.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Distance returns the Chebyshev distance between p and o.
//
// Postcondition: Returns >= 0; diagonal steps cost 1.
func (p Position) Distance(o Position) int {
	dx := p.X - o.X
	if dx < 0 {
		dx = -dx
	}
	dy := p.Y - o.Y
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

// Combatant is a snapshot of one participant in an encounter.
//
// Attribute, skill, and equipment values are copied in when the encounter is
// created and never re-read from character storage. HP is changed only through
// ApplyDamage and Heal.
type Combatant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// Profile selects the NPC behaviour scripts consulted on turn timeout.
	Profile    string               `json:"profile,omitempty"`
	Side       string               `json:"side"`
	Tier       int                  `json:"tier"`
	Attributes Attributes           `json:"attributes"`
	Skills     Skills               `json:"skills"`
	HP         int                  `json:"hp"`
	MaxHP      int                  `json:"maxHp"`
	Weapon     *inventory.WeaponDef `json:"weapon,omitempty"`
	Armor      *inventory.ArmorDef  `json:"armor,omitempty"`
	CoverID    string               `json:"coverId,omitempty"`
	Augments   AugmentBonus         `json:"augments"`
	Conditions []string             `json:"conditions,omitempty"`
	Position   Position             `json:"position"`
	// Items maps consumable item ID to remaining quantity.
	Items map[string]int `json:"items,omitempty"`
	// Evasion is a pending dodge bonus consumed by the next incoming attack.
	Evasion int `json:"evasion,omitempty"`
	// ReactionRound is the last round an out-of-turn reaction was taken; 0 is never.
	ReactionRound int `json:"reactionRound,omitempty"`
}

// Status derives the wound status from current HP.
func (c *Combatant) Status() WoundStatus {
	return GetWoundStatus(c.HP, c.MaxHP)
}

// IsStanding reports whether the combatant can still act.
//
// Postcondition: Returns false iff Status() is Down or Dead.
func (c *Combatant) IsStanding() bool {
	s := c.Status()
	return s != WoundDown && s != WoundDead
}

// EquippedWeapon returns the equipped weapon or the unarmed profile.
//
// Postcondition: Returns non-nil.
func (c *Combatant) EquippedWeapon() *inventory.WeaponDef {
	if c.Weapon != nil {
		return c.Weapon
	}
	return inventory.Unarmed()
}

// HasCondition reports whether tag is active.
func (c *Combatant) HasCondition(tag string) bool {
	return slices.Contains(c.Conditions, tag)
}

// AddCondition activates tag; adding an active tag is a no-op.
func (c *Combatant) AddCondition(tag string) {
	if !c.HasCondition(tag) {
		c.Conditions = append(c.Conditions, tag)
	}
}

// RemoveCondition deactivates tag.
func (c *Combatant) RemoveCondition(tag string) {
	c.Conditions = slices.DeleteFunc(c.Conditions, func(s string) bool { return s == tag })
}

// Clone returns a deep copy. Catalog definitions are shared since they are immutable.
func (c *Combatant) Clone() *Combatant {
	cp := *c
	cp.Conditions = slices.Clone(c.Conditions)
	if c.Items != nil {
		cp.Items = make(map[string]int, len(c.Items))
		for k, v := range c.Items {
			cp.Items[k] = v
		}
	}
	return &cp
}
