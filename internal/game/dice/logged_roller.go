package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// With returns a Roller drawing from the same Source that adds fields to every
// log line.
func (r *Roller) With(fields ...zap.Field) *Roller {
	return &Roller{src: r.src, logger: r.logger.With(fields...)}
}

// Intn satisfies Source, logging nothing. Callers that hand a Roller to pure
// formula code log the formula's result with LogRoll or LogCheck.
func (r *Roller) Intn(n int) int {
	return r.src.Intn(n)
}

// Roll evaluates expr and logs the result at debug level.
//
// Precondition: expr must come from Parse.
func (r *Roller) Roll(expr Expression, fields ...zap.Field) RollResult {
	result := Roll(expr, r.src)
	r.LogResult("dice roll", result, fields...)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or an error wrapping ErrInvalidExpression.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// LogResult logs an expression roll made elsewhere.
func (r *Roller) LogResult(msg string, result RollResult, fields ...zap.Field) {
	r.logger.Debug(msg, append([]zap.Field{
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	}, fields...)...)
}

// LogRoll logs a plain dice roll made elsewhere, such as initiative.
func (r *Roller) LogRoll(msg string, roll DiceRoll, fields ...zap.Field) {
	r.logger.Debug(msg, append([]zap.Field{
		zap.Ints("dice", roll.Dice),
		zap.Int("total", roll.Total),
	}, fields...)...)
}

// LogCheck logs a skill check made elsewhere.
func (r *Roller) LogCheck(msg string, res SkillCheckResult, fields ...zap.Field) {
	r.logger.Debug(msg, append([]zap.Field{
		zap.Ints("dice", res.Roll.Dice),
		zap.Int("modifier_total", res.ModifierTotal),
		zap.Int("total", res.Total),
		zap.Int("tn", res.TargetNumber),
		zap.Int("margin", res.Margin),
		zap.Stringer("tier", res.Tier),
		zap.Stringer("critical", res.Critical),
		zap.Bool("success", res.Success),
	}, fields...)...)
}

// SkillCheck performs a logged skill check.
func (r *Roller) SkillCheck(attrValue, skillLevel int, situational []Modifier, tn int) SkillCheckResult {
	res := PerformSkillCheck(r.src, attrValue, skillLevel, situational, tn)
	r.LogCheck("skill check", res)
	return res
}
