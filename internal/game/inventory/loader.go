package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// validatable is implemented by every catalog definition pointer.
type validatable[T any] interface {
	*T
	Validate() error
}

// loadDir parses every *.yaml/*.yml file in dir into a T and validates it.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid definitions in lexical file order, or the first error.
func loadDir[T any, PT validatable[T]](dir, op string) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: cannot read directory %q: %w", op, dir, err)
	}

	var defs []*T
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot read file %q: %w", op, path, err)
		}
		var def T
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("%s: cannot parse file %q: %w", op, path, err)
		}
		if err := PT(&def).Validate(); err != nil {
			return nil, fmt.Errorf("%s: invalid definition in %q: %w", op, path, err)
		}
		defs = append(defs, &def)
	}
	return defs, nil
}
