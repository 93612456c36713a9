package dice

// Tier classifies the signed margin of a check.
type Tier int

const (
	TierCatastrophe Tier = iota
	TierMiss
	TierGraze
	TierHit
	TierPerfect
)

// String returns the wire name of the tier.
func (t Tier) String() string {
	switch t {
	case TierCatastrophe:
		return "CATASTROPHE"
	case TierMiss:
		return "MISS"
	case TierGraze:
		return "GRAZE"
	case TierHit:
		return "HIT"
	case TierPerfect:
		return "PERFECT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// ClassifyResult maps a margin onto a Tier.
//
// Postcondition: margin <= -5 → Catastrophe; -4..-1 → Miss; 0 → Graze;
// 1..4 → Hit; >= 5 → Perfect.
func ClassifyResult(margin int) Tier {
	switch {
	case margin <= -5:
		return TierCatastrophe
	case margin < 0:
		return TierMiss
	case margin == 0:
		return TierGraze
	case margin < 5:
		return TierHit
	default:
		return TierPerfect
	}
}

// Critical tags a check whose natural roll overrides the arithmetic outcome.
// The zero value means no override.
type Critical int

const (
	CriticalNone Critical = iota
	CriticalAutoFail
	CriticalAutoSuccess
)

// String returns the wire name of the critical marker.
func (c Critical) String() string {
	switch c {
	case CriticalAutoFail:
		return "AUTO_FAIL"
	case CriticalAutoSuccess:
		return "AUTO_SUCCESS"
	default:
		return ""
	}
}

// MarshalText encodes the critical marker by name; CriticalNone encodes as "".
func (c Critical) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// AttributeModifier converts an attribute value into its check modifier.
//
// Postcondition: value is clamped to [1, 20]; returns floor((clamped-10)/2),
// i.e. -5 at 1 through +5 at 20.
func AttributeModifier(value int) int {
	if value < 1 {
		value = 1
	}
	if value > 20 {
		value = 20
	}
	diff := value - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// Modifier is one named contribution to a check total.
type Modifier struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// SkillCheckResult is the full record of a single skill check.
//
// Invariant: Margin == Total - TargetNumber; Tier == ClassifyResult(Margin).
// Critical, when set, overrides Success but never Margin or Tier.
type SkillCheckResult struct {
	Roll          DiceRoll   `json:"roll"`
	Modifiers     []Modifier `json:"modifiers"`
	ModifierTotal int        `json:"modifierTotal"`
	TargetNumber  int        `json:"targetNumber"`
	Total         int        `json:"total"`
	Success       bool       `json:"success"`
	Margin        int        `json:"margin"`
	Tier          Tier       `json:"tier"`
	Critical      Critical   `json:"critical,omitempty"`
}

// PerformSkillCheck rolls 2d6 and evaluates it against tn.
//
// Precondition: src must be non-nil.
func PerformSkillCheck(src Source, attrValue, skillLevel int, situational []Modifier, tn int) SkillCheckResult {
	return EvaluateSkillCheck(Roll2d6(src), attrValue, skillLevel, situational, tn)
}

// EvaluateSkillCheck evaluates an already-rolled 2d6 against tn.
//
// Modifiers are applied in the order Attribute, Skill, then situational.
// Snake eyes fails and boxcars succeeds regardless of the total.
func EvaluateSkillCheck(roll DiceRoll, attrValue, skillLevel int, situational []Modifier, tn int) SkillCheckResult {
	mods := make([]Modifier, 0, 2+len(situational))
	mods = append(mods,
		Modifier{Name: "Attribute", Value: AttributeModifier(attrValue)},
		Modifier{Name: "Skill", Value: skillLevel},
	)
	mods = append(mods, situational...)

	modTotal := 0
	for _, m := range mods {
		modTotal += m.Value
	}
	total := roll.Total + modTotal
	margin := total - tn

	res := SkillCheckResult{
		Roll:          roll,
		Modifiers:     mods,
		ModifierTotal: modTotal,
		TargetNumber:  tn,
		Total:         total,
		Margin:        margin,
		Tier:          ClassifyResult(margin),
	}
	switch {
	case roll.IsSnakeEyes:
		res.Success = false
		res.Critical = CriticalAutoFail
	case roll.IsBoxcars:
		res.Success = true
		res.Critical = CriticalAutoSuccess
	default:
		res.Success = total >= tn
	}
	return res
}
