package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrEmptyQuestion   = errors.New("question must not be empty")
	ErrQuestionTooLong = errors.New("question exceeds the length limit")
	ErrMissingQuery    = errors.New("missing q parameter")
	ErrUnknownKind     = errors.New("kind must be player, team or venue")
)
