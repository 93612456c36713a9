package inventory

import (
	"fmt"
	"sort"
)

// Registry holds all loaded weapon, armor, cover, and item definitions indexed by ID.
//
// A Registry is populated once at startup and read concurrently afterwards; it
// must not be mutated after it has been handed to an encounter.
type Registry struct {
	weapons map[string]*WeaponDef
	armor   map[string]*ArmorDef
	covers  map[string]*CoverDef
	items   map[string]*ItemDef
}

// NewRegistry returns an empty Registry.
//
// Postcondition: all internal maps are initialised.
func NewRegistry() *Registry {
	return &Registry{
		weapons: make(map[string]*WeaponDef),
		armor:   make(map[string]*ArmorDef),
		covers:  make(map[string]*CoverDef),
		items:   make(map[string]*ItemDef),
	}
}

// RegisterWeapon adds w to the registry.
//
// Precondition:  w must not be nil.
// Postcondition: Weapon(w.ID) returns w; returns error if w.ID already registered or w is invalid.
func (r *Registry) RegisterWeapon(w *WeaponDef) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("inventory: Registry.RegisterWeapon: %w", err)
	}
	if _, exists := r.weapons[w.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterWeapon: weapon ID %q already registered", w.ID)
	}
	r.weapons[w.ID] = w
	return nil
}

// RegisterArmor adds a to the registry.
//
// Precondition:  a must not be nil.
// Postcondition: Armor(a.ID) returns a; returns error if a.ID already registered or a is invalid.
func (r *Registry) RegisterArmor(a *ArmorDef) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("inventory: Registry.RegisterArmor: %w", err)
	}
	if _, exists := r.armor[a.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterArmor: armor ID %q already registered", a.ID)
	}
	r.armor[a.ID] = a
	return nil
}

// RegisterCover adds c to the registry.
func (r *Registry) RegisterCover(c *CoverDef) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("inventory: Registry.RegisterCover: %w", err)
	}
	if _, exists := r.covers[c.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterCover: cover ID %q already registered", c.ID)
	}
	r.covers[c.ID] = c
	return nil
}

// RegisterItem adds d to the registry.
//
// Precondition:  d must not be nil.
// Postcondition: Item(d.ID) returns (d, true); returns error if d.ID already registered.
func (r *Registry) RegisterItem(d *ItemDef) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("inventory: Registry.RegisterItem: %w", err)
	}
	if _, exists := r.items[d.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterItem: item ID %q already registered", d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// Weapon returns the WeaponDef for the given id, or nil if not found.
func (r *Registry) Weapon(id string) *WeaponDef {
	return r.weapons[id]
}

// WeaponOrUnarmed returns the WeaponDef for id, falling back to the unarmed
// profile when id is empty.
//
// Postcondition: ok is false only when id is non-empty and unregistered.
func (r *Registry) WeaponOrUnarmed(id string) (*WeaponDef, bool) {
	if id == "" {
		return Unarmed(), true
	}
	w, ok := r.weapons[id]
	return w, ok
}

// Armor returns the ArmorDef for the given id, or nil if not found.
func (r *Registry) Armor(id string) *ArmorDef {
	return r.armor[id]
}

// Cover returns the CoverDef for the given id, or nil if not found.
func (r *Registry) Cover(id string) *CoverDef {
	return r.covers[id]
}

// Item returns the ItemDef for the given id and whether it was found.
//
// Postcondition: ok is true iff the id is registered.
func (r *Registry) Item(id string) (*ItemDef, bool) {
	d, ok := r.items[id]
	return d, ok
}

// AllWeapons returns all registered WeaponDefs sorted by ID.
//
// Postcondition: len(result) == number of registered weapons.
func (r *Registry) AllWeapons() []*WeaponDef {
	out := make([]*WeaponDef, 0, len(r.weapons))
	for _, w := range r.weapons {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts returns the number of registered weapons, armor, covers, and items.
func (r *Registry) Counts() (weapons, armor, covers, items int) {
	return len(r.weapons), len(r.armor), len(r.covers), len(r.items)
}

// ContentDirs names the directories each catalog is loaded from. Empty
// entries are skipped.
type ContentDirs struct {
	Weapons string
	Armor   string
	Covers  string
	Items   string
}

// LoadRegistry loads every configured catalog directory into a new Registry.
//
// Postcondition: returns a fully populated Registry or the first load or registration error.
func LoadRegistry(dirs ContentDirs) (*Registry, error) {
	r := NewRegistry()
	if dirs.Weapons != "" {
		defs, err := LoadWeapons(dirs.Weapons)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if err := r.RegisterWeapon(d); err != nil {
				return nil, err
			}
		}
	}
	if dirs.Armor != "" {
		defs, err := LoadArmors(dirs.Armor)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if err := r.RegisterArmor(d); err != nil {
				return nil, err
			}
		}
	}
	if dirs.Covers != "" {
		defs, err := LoadCovers(dirs.Covers)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if err := r.RegisterCover(d); err != nil {
				return nil, err
			}
		}
	}
	if dirs.Items != "" {
		defs, err := LoadItems(dirs.Items)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if err := r.RegisterItem(d); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
