package dice

import "fmt"

// named is an int enum with wire names.
type named interface {
	~int
	String() string
}

// parseName finds the value of T in [0, last] whose String is s.
func parseName[T named](s string, last T) (T, error) {
	for v := T(0); v <= last; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("dice: unknown %T %q", zero, s)
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := parseName(string(b), TierPerfect)
	if err == nil {
		*t = v
	}
	return err
}

// UnmarshalText decodes a critical marker; "" decodes as CriticalNone.
func (c *Critical) UnmarshalText(b []byte) error {
	v, err := parseName(string(b), CriticalAutoSuccess)
	if err == nil {
		*c = v
	}
	return err
}

// UnmarshalText decodes a winner name.
func (w *Winner) UnmarshalText(b []byte) error {
	v, err := parseName(string(b), WinnerAttacker)
	if err == nil {
		*w = v
	}
	return err
}

// UnmarshalText decodes an extended check status.
func (s *ExtendedStatus) UnmarshalText(b []byte) error {
	v, err := parseName(string(b), ExtendedFailed)
	if err == nil {
		*s = v
	}
	return err
}
