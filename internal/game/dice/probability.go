package dice

import "math"

// atLeast2d6 counts, out of 36, the 2d6 outcomes whose sum is >= the index.
var atLeast2d6 = [13]int{
	2: 36, 3: 35, 4: 33, 5: 30, 6: 26, 7: 21,
	8: 15, 9: 10, 10: 6, 11: 3, 12: 1,
}

// SuccessProbability returns the percentage chance (0-100, two decimals) that
// a skill check succeeds on the arithmetic alone.
//
// Postcondition: a needed die total <= 2 returns 100; > 12 returns 0.
func SuccessProbability(attrValue, skillLevel, situational, tn int) float64 {
	need := tn - (AttributeModifier(attrValue) + skillLevel + situational)
	switch {
	case need <= 2:
		return 100
	case need > 12:
		return 0
	}
	pct := float64(atLeast2d6[need]) * 100 / 36
	return math.Round(pct*100) / 100
}
