package models

import "errors"

// Domain errors. Callers wrap these with fmt.Errorf("%w: ...") and match
// them with errors.Is; transports translate them to status codes.
var (
	ErrInvalidTransition    = errors.New("invalid meeting state transition")
	ErrMeetingNotActive     = errors.New("meeting is not in progress")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrSavingTypeConstraint = errors.New("saving type constraint violated")
	ErrDuplicateReference   = errors.New("payment reference already submitted for this meeting")
	ErrAlreadyResolved      = errors.New("payment already resolved")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("not permitted")
	ErrInvalidInput         = errors.New("invalid input")
)
