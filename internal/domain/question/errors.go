package question

import "errors"

// Sentinel errors for question lookups.
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrUnknownLevel     = errors.New("unknown education level")
)
