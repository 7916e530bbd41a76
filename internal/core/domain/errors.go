package domain

import "errors"

var (
	ErrAuthExpired          = errors.New("authentication expired")
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrNotFound             = errors.New("not found")
	ErrUnknownRole          = errors.New("unknown role")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrDuplicateSubmission  = errors.New("duplicate submission")
)
