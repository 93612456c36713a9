package combat

import "fmt"

// WoundStatus is a discrete band of the hp/maxHP ratio.
// It is never stored; it is recomputed from HP on every read.
type WoundStatus int

const (
	WoundHealthy WoundStatus = iota
	WoundWounded
	WoundBadlyWounded
	WoundCritical
	WoundDown
	WoundDead
)

// String returns the wire name of the status.
func (w WoundStatus) String() string {
	switch w {
	case WoundHealthy:
		return "HEALTHY"
	case WoundWounded:
		return "WOUNDED"
	case WoundBadlyWounded:
		return "BADLY_WOUNDED"
	case WoundCritical:
		return "CRITICAL"
	case WoundDown:
		return "DOWN"
	case WoundDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (w WoundStatus) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WoundStatus) UnmarshalText(b []byte) error {
	for v := WoundHealthy; v <= WoundDead; v++ {
		if v.String() == string(b) {
			*w = v
			return nil
		}
	}
	return fmt.Errorf("combat: unknown wound status %q", b)
}

// Penalty returns the action penalty carried by the status.
// Down and Dead carry the Critical penalty.
func (w WoundStatus) Penalty() int {
	switch w {
	case WoundHealthy:
		return 0
	case WoundWounded:
		return 1
	case WoundBadlyWounded:
		return 2
	default:
		return 3
	}
}

// GetWoundStatus classifies hp against maxHP using integer arithmetic.
//
// Bands: > 75% Healthy; > 50% Wounded; > 25% BadlyWounded; > 0 Critical;
// <= 0 Down; <= -10% of max Dead.
//
// Precondition: maxHP > 0. A non-positive maxHP yields Down for hp <= 0 and Healthy otherwise.
func GetWoundStatus(hp, maxHP int) WoundStatus {
	if maxHP <= 0 {
		if hp <= 0 {
			return WoundDown
		}
		return WoundHealthy
	}
	switch {
	case hp*10 <= -maxHP:
		return WoundDead
	case hp <= 0:
		return WoundDown
	case hp*100 <= 25*maxHP:
		return WoundCritical
	case hp*100 <= 50*maxHP:
		return WoundBadlyWounded
	case hp*100 <= 75*maxHP:
		return WoundWounded
	default:
		return WoundHealthy
	}
}

// WoundPenalty returns GetWoundStatus(hp, maxHP).Penalty().
func WoundPenalty(hp, maxHP int) int {
	return GetWoundStatus(hp, maxHP).Penalty()
}

// MaxHP derives maximum hit points.
//
// Postcondition: Returns END*5 + PWR*2 + tier*3.
func MaxHP(end, pwr, tier int) int {
	return end*5 + pwr*2 + tier*3
}

// ApplyDamage subtracts amount from c.HP without flooring, so HP may go
// negative and distinguish Down from Dead.
//
// Precondition: c is non-nil; negative amounts are treated as 0.
// Postcondition: c.HP decreased by max(amount, 0); returns the new status.
func ApplyDamage(c *Combatant, amount int) WoundStatus {
	if amount > 0 {
		c.HP -= amount
	}
	return c.Status()
}

// Heal restores up to amount HP, capped at MaxHP.
//
// Precondition: c is non-nil.
// Postcondition: returns the HP actually restored (>= 0); c.HP <= c.MaxHP unless it was already above.
func Heal(c *Combatant, amount int) int {
	if amount <= 0 || c.HP >= c.MaxHP {
		return 0
	}
	before := c.HP
	c.HP = min(c.HP+amount, c.MaxHP)
	return c.HP - before
}
