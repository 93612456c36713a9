package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidExpression is returned when a dice expression does not match NdS±B.
var ErrInvalidExpression = errors.New("dice: invalid expression")

// maxDiceCount bounds the number of dice in a single expression.
const maxDiceCount = 100

var expressionPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Expression represents a parsed dice expression ready to be rolled.
// Invariant: Count >= 1, Sides >= 1 after successful Parse.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
}

// Parse parses a dice expression of the form "NdS", "NdS+B" or "NdS-B".
//
// Postcondition: Returns a valid Expression, or an error wrapping ErrInvalidExpression.
func Parse(expr string) (Expression, error) {
	m := expressionPattern.FindStringSubmatch(expr)
	if m == nil {
		return Expression{}, fmt.Errorf("%w: %q does not match NdS[+-B]", ErrInvalidExpression, expr)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil || count < 1 || count > maxDiceCount {
		return Expression{}, fmt.Errorf("%w: die count in %q must be 1-%d", ErrInvalidExpression, expr, maxDiceCount)
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil || sides < 1 {
		return Expression{}, fmt.Errorf("%w: die sides in %q must be >= 1", ErrInvalidExpression, expr)
	}

	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: modifier in %q: %v", ErrInvalidExpression, expr, err)
		}
	}

	return Expression{
		Raw:      expr,
		Count:    count,
		Sides:    sides,
		Modifier: modifier,
	}, nil
}

// String returns the canonical form of the expression.
func (e Expression) String() string {
	if e.Modifier == 0 {
		return fmt.Sprintf("%dd%d", e.Count, e.Sides)
	}
	return fmt.Sprintf("%dd%d%+d", e.Count, e.Sides, e.Modifier)
}
