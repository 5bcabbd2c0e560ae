package domain

import "errors"

var (
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidKind     = errors.New("invalid item kind")
)
