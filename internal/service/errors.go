package service

import "errors"

// Validation and authorization failures reject synchronously with no state
// mutation; a lost status race surfaces as ErrAlreadyTransitioned and callers
// treat it as authoritative, not retryable.
var (
	ErrBetNotFound            = errors.New("bet not found")
	ErrBetNotOpen             = errors.New("bet is not open for betting")
	ErrBetNotClosed           = errors.New("bet is not closed for resolution")
	ErrDeadlinePassed         = errors.New("betting deadline has passed")
	ErrStakeOutOfBounds       = errors.New("stake outside allowed bounds")
	ErrDuplicateParticipation = errors.New("active participation already exists")
	ErrInvalidOption          = errors.New("invalid option index")
	ErrInvalidPrediction      = errors.New("predicted value is required")
	ErrInvalidBetSpec         = errors.New("invalid bet specification")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrAlreadyTransitioned    = errors.New("bet already transitioned")
	ErrDuplicateAssignment    = errors.New("active resolver assignment already exists")
	ErrAssignmentNotFound     = errors.New("resolver assignment not found")
)
