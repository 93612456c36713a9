package inventory

import (
	"errors"
	"fmt"
)

// ArmorDef defines an armor piece. Value both raises defense and absorbs damage;
// AgiPenalty is subtracted from the wearer's raw AGI before the modifier lookup.
type ArmorDef struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Value       int    `yaml:"value" json:"value"`
	AgiPenalty  int    `yaml:"agi_penalty" json:"agiPenalty"`
}

// Validate reports an error if the ArmorDef is missing required fields or contains illegal values.
// Precondition: a is non-nil.
// Postcondition: Returns nil iff the def is well-formed.
func (a *ArmorDef) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if a.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if a.Value < 0 {
		errs = append(errs, errors.New("value must be >= 0"))
	}
	if a.AgiPenalty < 0 {
		errs = append(errs, errors.New("agi_penalty must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: armor %q: %v", ErrMisconfigured, a.ID, errs)
	}
	return nil
}

// LoadArmors reads all .yaml files in dir and returns parsed ArmorDef slice.
// Precondition: dir must be a readable directory.
// Postcondition: all returned defs pass Validate.
func LoadArmors(dir string) ([]*ArmorDef, error) {
	return loadDir[ArmorDef](dir, "LoadArmors")
}
