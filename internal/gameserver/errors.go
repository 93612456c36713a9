package gameserver

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

// ErrorDomain is the errdetails.ErrorInfo domain of every rejection.
const ErrorDomain = "skirmish"

// grpcCode maps a rejection code onto the closest gRPC status code.
func grpcCode(c encounter.Code) codes.Code {
	switch c {
	case encounter.CodeUnauthorized:
		return codes.PermissionDenied
	case encounter.CodeUnknownCombatant:
		return codes.NotFound
	case encounter.CodeOutOfRange:
		return codes.OutOfRange
	case encounter.CodeTargetRequired, encounter.CodeInvalidAction:
		return codes.InvalidArgument
	case encounter.CodeMisconfiguredContent:
		return codes.Internal
	default:
		return codes.FailedPrecondition
	}
}

// toStatus converts a service-layer error into a gRPC status error. Action
// rejections carry an errdetails.ErrorInfo whose Reason is the rejection code.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var rej *encounter.RejectionError
	switch {
	case errors.As(err, &rej):
		st := status.New(grpcCode(rej.Code), rej.Error())
		detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason: string(rej.Code),
			Domain: ErrorDomain,
		})
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.Is(err, encounter.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// RejectionCode extracts the rejection code from a status error returned by
// the service, if it carries one.
func RejectionCode(err error) (encounter.Code, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == ErrorDomain {
			return encounter.Code(info.Reason), true
		}
	}
	return "", false
}
