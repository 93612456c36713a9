package encounter

import (
	"errors"
	"fmt"
)

// Code is a stable, client-displayable rejection reason.
type Code string

const (
	CodeWrongPhase           Code = "WRONG_PHASE"
	CodeNotYourTurn          Code = "NOT_YOUR_TURN"
	CodeUnknownCombatant     Code = "UNKNOWN_COMBATANT"
	CodeActorIncapacitated   Code = "ACTOR_INCAPACITATED"
	CodeTargetDown           Code = "TARGET_DOWN"
	CodeTargetRequired       Code = "TARGET_REQUIRED"
	CodeOutOfRange           Code = "OUT_OF_RANGE"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeInvalidAction        Code = "INVALID_ACTION"
	CodeItemUnavailable      Code = "ITEM_UNAVAILABLE"
	CodeMisconfiguredContent Code = "MISCONFIGURED_CONTENT"
	CodeEncounterEnded       Code = "ENCOUNTER_ENDED"
)

// RejectionError reports why an action was refused. Encounter state is never
// modified by a rejected action.
type RejectionError struct {
	Code    Code
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Is matches any RejectionError with the same Code.
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrWrongPhase           = &RejectionError{Code: CodeWrongPhase}
	ErrNotYourTurn          = &RejectionError{Code: CodeNotYourTurn}
	ErrUnknownCombatant     = &RejectionError{Code: CodeUnknownCombatant}
	ErrActorIncapacitated   = &RejectionError{Code: CodeActorIncapacitated}
	ErrTargetDown           = &RejectionError{Code: CodeTargetDown}
	ErrTargetRequired       = &RejectionError{Code: CodeTargetRequired}
	ErrOutOfRange           = &RejectionError{Code: CodeOutOfRange}
	ErrUnauthorized         = &RejectionError{Code: CodeUnauthorized}
	ErrInvalidAction        = &RejectionError{Code: CodeInvalidAction}
	ErrItemUnavailable      = &RejectionError{Code: CodeItemUnavailable}
	ErrMisconfiguredContent = &RejectionError{Code: CodeMisconfiguredContent}
	ErrEncounterEnded       = &RejectionError{Code: CodeEncounterEnded}
)

// ErrNotFound is returned by Manager lookups for unknown encounter IDs.
var ErrNotFound = errors.New("encounter: not found")

func reject(code Code, format string, args ...any) *RejectionError {
	return &RejectionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the rejection code from err.
func CodeOf(err error) (Code, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}
