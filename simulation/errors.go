package simulation

import (
	"errors"

	"sion-backend/algorithms"
)

var (
	ErrInvalidPerception  = errors.New("invalid perception")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrSimulationEnded    = errors.New("simulation ended")
	ErrUnknownAgent       = errors.New("unknown agent")
	ErrNoRule             = errors.New("no rule matched")
	ErrInvalidConfig      = errors.New("invalid simulation config")
)

// 외부로 내보내는 에러 코드
const (
	CodeOutOfBounds       = "E_OUT_OF_BOUNDS"
	CodeBlocked           = "E_BLOCKED"
	CodeUnreachable       = "E_UNREACHABLE"
	CodeInvalidPerception = "E_INVALID_PERCEPTION"
	CodeInvariant         = "E_INVARIANT"
	CodeEnded             = "E_ENDED"
	CodeNotFound          = "E_NOT_FOUND"
	CodeBadRequest        = "E_BAD_REQUEST"
	CodeInternal          = "E_INTERNAL"
)

// ErrorCode - 에러를 안정적인 코드 문자열로
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfig):
		return CodeBadRequest
	case errors.Is(err, ErrInvalidPerception), errors.Is(err, ErrUnknownAgent):
		return CodeInvalidPerception
	case errors.Is(err, ErrInvariantViolation):
		return CodeInvariant
	case errors.Is(err, ErrSimulationEnded):
		return CodeEnded
	case errors.Is(err, algorithms.ErrBlocked):
		return CodeBlocked
	case errors.Is(err, algorithms.ErrOutOfBounds):
		return CodeOutOfBounds
	case errors.Is(err, algorithms.ErrUnreachable):
		return CodeUnreachable
	case errors.Is(err, algorithms.ErrInvalidArgument):
		return CodeBadRequest
	}
	return CodeInternal
}
