package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateJob      = errors.New("duplicate job id")
	ErrInvalidTransition = errors.New("job already in a terminal state")
	ErrInvalidPrompt     = errors.New("invalid prompt")
	ErrInvalidParams     = errors.New("invalid job parameters")
	ErrProviderFailure   = errors.New("provider failure")
)
