package gameserver

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// CombatantSpec describes a combatant by reference to catalog content.
type CombatantSpec struct {
	ID         string              `json:"id" yaml:"id"`
	Name       string              `json:"name" yaml:"name"`
	Kind       string              `json:"kind,omitempty" yaml:"kind"`
	Profile    string              `json:"profile,omitempty" yaml:"profile"`
	Side       string              `json:"side" yaml:"side"`
	Tier       int                 `json:"tier,omitempty" yaml:"tier"`
	Attributes combat.Attributes   `json:"attributes" yaml:"attributes"`
	Skills     combat.Skills       `json:"skills" yaml:"skills"`
	HP         int                 `json:"hp,omitempty" yaml:"hp"`
	MaxHP      int                 `json:"maxHp,omitempty" yaml:"max_hp"`
	WeaponID   string              `json:"weaponId,omitempty" yaml:"weapon"`
	ArmorID    string              `json:"armorId,omitempty" yaml:"armor"`
	CoverID    string              `json:"coverId,omitempty" yaml:"cover"`
	Augments   combat.AugmentBonus `json:"augments" yaml:"augments"`
	Position   combat.Position     `json:"position" yaml:"position"`
	Items      map[string]int      `json:"items,omitempty" yaml:"items"`
}

// CoverSpec places an instance of a catalog cover definition.
type CoverSpec struct {
	ID       string          `json:"id" yaml:"id"`
	DefID    string          `json:"defId" yaml:"def"`
	Position combat.Position `json:"position" yaml:"position"`
}

// BootstrapRequest is the wire form of an encounter bootstrap.
type BootstrapRequest struct {
	ID           string                  `json:"id,omitempty" yaml:"id"`
	Combatants   []CombatantSpec         `json:"combatants" yaml:"combatants"`
	Covers       []CoverSpec             `json:"covers,omitempty" yaml:"covers"`
	Participants []encounter.Participant `json:"participants" yaml:"participants"`
}

// Build resolves every content reference against reg.
//
// Postcondition: returns an error naming every unknown weapon, armor, cover,
// or item reference and every invalid kind.
func (r BootstrapRequest) Build(reg *inventory.Registry) (encounter.Bootstrap, error) {
	boot := encounter.Bootstrap{ID: r.ID, Participants: r.Participants}
	var errs []error
	for _, spec := range r.Combatants {
		c := &combat.Combatant{
			ID:         spec.ID,
			Name:       spec.Name,
			Profile:    spec.Profile,
			Side:       spec.Side,
			Tier:       spec.Tier,
			Attributes: spec.Attributes,
			Skills:     spec.Skills,
			HP:         spec.HP,
			MaxHP:      spec.MaxHP,
			CoverID:    spec.CoverID,
			Augments:   spec.Augments,
			Position:   spec.Position,
			Items:      spec.Items,
		}
		switch spec.Kind {
		case "", "player":
			c.Kind = combat.KindPlayer
		case "npc":
			c.Kind = combat.KindNPC
		default:
			errs = append(errs, fmt.Errorf("combatant %q: unknown kind %q", spec.ID, spec.Kind))
		}
		if spec.WeaponID != "" {
			if c.Weapon = reg.Weapon(spec.WeaponID); c.Weapon == nil {
				errs = append(errs, fmt.Errorf("combatant %q: unknown weapon %q", spec.ID, spec.WeaponID))
			}
		}
		if spec.ArmorID != "" {
			if c.Armor = reg.Armor(spec.ArmorID); c.Armor == nil {
				errs = append(errs, fmt.Errorf("combatant %q: unknown armor %q", spec.ID, spec.ArmorID))
			}
		}
		for id := range spec.Items {
			if _, ok := reg.Item(id); !ok {
				errs = append(errs, fmt.Errorf("combatant %q: unknown item %q", spec.ID, id))
			}
		}
		boot.Combatants = append(boot.Combatants, c)
	}
	for _, spec := range r.Covers {
		def := reg.Cover(spec.DefID)
		if def == nil {
			errs = append(errs, fmt.Errorf("cover %q: unknown definition %q", spec.ID, spec.DefID))
			continue
		}
		boot.Covers = append(boot.Covers, &combat.CoverInstance{ID: spec.ID, Def: def, HP: def.HP, Position: spec.Position})
	}
	if err := errors.Join(errs...); err != nil {
		return encounter.Bootstrap{}, fmt.Errorf("gameserver: bootstrap: %w", err)
	}
	return boot, nil
}
