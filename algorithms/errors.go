package algorithms

import "errors"

// 그리드/경로 탐색 에러 종류. errors.Is 로 구분한다.
var (
	ErrOutOfBounds     = errors.New("cell out of bounds")
	ErrCellFull        = errors.New("cell cannot accept occupant")
	ErrNotPresent      = errors.New("occupant not present")
	ErrBlocked         = errors.New("move blocked")
	ErrUnreachable     = errors.New("goal unreachable")
	ErrInvalidArgument = errors.New("invalid argument")
)
