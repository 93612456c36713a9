package dice

// ExtendedStatus is the lifecycle of an extended check.
type ExtendedStatus int

const (
	ExtendedInProgress ExtendedStatus = iota
	ExtendedCompleted
	ExtendedFailed
)

// String returns the wire name of the status.
func (s ExtendedStatus) String() string {
	switch s {
	case ExtendedCompleted:
		return "COMPLETED"
	case ExtendedFailed:
		return "FAILED"
	default:
		return "IN_PROGRESS"
	}
}

// MarshalText encodes the status by name.
func (s ExtendedStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ExtendedCheck accumulates repeated attempts at a multi-step task.
//
// Invariant: Successes + Failures == len(Attempts).
type ExtendedCheck struct {
	Required    int                `json:"required"`
	MaxFailures int                `json:"maxFailures"`
	Successes   int                `json:"successes"`
	Failures    int                `json:"failures"`
	Attempts    []SkillCheckResult `json:"attempts"`
	Status      ExtendedStatus     `json:"status"`
}

// NewExtendedCheck creates an in-progress extended check.
//
// Precondition: required >= 1; maxFailures >= 1.
func NewExtendedCheck(required, maxFailures int) *ExtendedCheck {
	return &ExtendedCheck{
		Required:    required,
		MaxFailures: maxFailures,
		Status:      ExtendedInProgress,
	}
}

// Done reports whether the check has reached a terminal status.
func (e *ExtendedCheck) Done() bool {
	return e.Status != ExtendedInProgress
}

// AddAttempt appends result and recomputes Status.
//
// The method does not guard against use after a terminal status; callers
// must check Done first.
func (e *ExtendedCheck) AddAttempt(result SkillCheckResult) {
	e.Attempts = append(e.Attempts, result)
	if result.Success {
		e.Successes++
	} else {
		e.Failures++
	}
	switch {
	case e.Successes >= e.Required:
		e.Status = ExtendedCompleted
	case e.Failures >= e.MaxFailures:
		e.Status = ExtendedFailed
	default:
		e.Status = ExtendedInProgress
	}
}
