package dice

// Winner identifies the side that prevailed in an opposed check.
type Winner int

const (
	WinnerDefender Winner = iota
	WinnerAttacker
)

// String returns the wire name of the winner.
func (w Winner) String() string {
	if w == WinnerAttacker {
		return "ATTACKER"
	}
	return "DEFENDER"
}

// MarshalText encodes the winner by name.
func (w Winner) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// OpposedCheckResult pairs two checks made against TN 0.
type OpposedCheckResult struct {
	Attacker SkillCheckResult `json:"attacker"`
	Defender SkillCheckResult `json:"defender"`
	Winner   Winner           `json:"winner"`
	Margin   int              `json:"margin"`
	// Tie is set when the totals were equal and no critical decided the
	// contest. Winner is still DEFENDER.
	Tie bool `json:"tie,omitempty"`
}

// OpposedSide describes one participant's stake in an opposed check.
type OpposedSide struct {
	AttrValue   int
	SkillLevel  int
	Situational []Modifier
}

// PerformOpposedCheck rolls both sides at TN 0 and resolves the winner.
//
// Precondition: src must be non-nil.
func PerformOpposedCheck(src Source, attacker, defender OpposedSide) OpposedCheckResult {
	a := PerformSkillCheck(src, attacker.AttrValue, attacker.SkillLevel, attacker.Situational, 0)
	d := PerformSkillCheck(src, defender.AttrValue, defender.SkillLevel, defender.Situational, 0)
	return ResolveOpposed(a, d)
}

// ResolveOpposed decides an opposed contest from two finished checks.
//
// Priority: a lone AUTO_SUCCESS wins; a lone AUTO_FAIL loses; otherwise the
// higher total wins and exact ties go to the defender with margin 0. When a
// critical forces the result the margin is max(|diff|, 1).
func ResolveOpposed(a, d SkillCheckResult) OpposedCheckResult {
	res := OpposedCheckResult{Attacker: a, Defender: d}

	diff := a.Total - d.Total
	absDiff := diff
	if absDiff < 0 {
		absDiff = -absDiff
	}
	forced := max(absDiff, 1)

	aSucc := a.Critical == CriticalAutoSuccess
	dSucc := d.Critical == CriticalAutoSuccess
	aFail := a.Critical == CriticalAutoFail
	dFail := d.Critical == CriticalAutoFail

	switch {
	case aSucc && !dSucc:
		res.Winner, res.Margin = WinnerAttacker, forced
	case dSucc && !aSucc:
		res.Winner, res.Margin = WinnerDefender, forced
	case dFail && !aFail:
		res.Winner, res.Margin = WinnerAttacker, forced
	case aFail && !dFail:
		res.Winner, res.Margin = WinnerDefender, forced
	case diff > 0:
		res.Winner, res.Margin = WinnerAttacker, diff
	case diff < 0:
		res.Winner, res.Margin = WinnerDefender, -diff
	default:
		res.Winner, res.Margin, res.Tie = WinnerDefender, 0, true
	}
	return res
}
