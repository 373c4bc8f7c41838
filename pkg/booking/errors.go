package booking

import (
	"errors"
	"fmt"
)

// Reason classifies a step validation failure.
type Reason string

const (
	ReasonMissingField     Reason = "MissingField"
	ReasonInvalidEmail     Reason = "InvalidEmail"
	ReasonInvalidPhone     Reason = "InvalidPhone"
	ReasonInvalidDate      Reason = "InvalidDate"
	ReasonPastDate         Reason = "PastDate"
	ReasonInvalidSlot      Reason = "InvalidSlot"
	ReasonInvalidPartySize Reason = "InvalidPartySize"
	ReasonNoTableSelected  Reason = "NoTableSelected"
	ReasonTableTooSmall    Reason = "TableTooSmall"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnknownField         = errors.New("unknown draft field")
	ErrAtFirstStep          = errors.New("already at the first step")
	ErrAtLastStep           = errors.New("already at the confirmation step")
	ErrNotAtConfirmation    = errors.New("reservation can only be submitted from the confirmation step")
	ErrNotSelectingTable    = errors.New("tables can only be selected on the table selection step")
	ErrUnknownTable         = errors.New("table is not in the current availability")
	ErrAvailabilityOutdated = errors.New("availability does not match the current date, time and party size")
	ErrSubmitInProgress     = errors.New("reservation submit already in progress")
	ErrWizardDone           = errors.New("reservation already submitted")
	ErrStaleResolution      = errors.New("availability resolution superseded")
	ErrInvalidTable         = errors.New("invalid table")
)

// ValidationError is a client-side step gating failure. The user corrects
// the input and retries; it never reaches the gateway.
type ValidationError struct {
	Step    int
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d: %s: %s", e.Step, e.Reason, e.Message)
}

func newValidationError(step int, reason Reason, message string) *ValidationError {
	return &ValidationError{Step: step, Reason: reason, Message: message}
}

// RequestFailure means the backend could not be reached or answered with a
// server-side failure.
type RequestFailure struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestFailure) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed (status=%d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RequestFailure) Unwrap() error {
	return e.Err
}

// ConflictError means the table/time was taken between the availability
// check and the submit.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "reservation conflict"
	}
	return "reservation conflict: " + e.Message
}

// ServerValidationError carries a backend rejection of the payload, or a
// response whose shape could not be accepted. Message is shown verbatim.
type ServerValidationError struct {
	Message string
}

func (e *ServerValidationError) Error() string {
	return e.Message
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsRequestFailure(err error) bool {
	var target *RequestFailure
	return errors.As(err, &target)
}
