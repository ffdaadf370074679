package provisioning

import (
	"errors"
	"fmt"
)

// ErrorKind classifies workflow failures.
type ErrorKind string

// ErrorKind values
const (
	// InvalidRequest means the request was refused before touching the store.
	InvalidRequest ErrorKind = "InvalidRequest"
	// ConnectionError means no session could be established with the store.
	ConnectionError ErrorKind = "ConnectionError"
	// DirectoryQueryError means an existence or quota scan failed.
	DirectoryQueryError ErrorKind = "DirectoryQueryError"
	// MutationError means creating the owner, dropping the database or removing the owner failed.
	// The tenant may be left partially applied.
	MutationError ErrorKind = "MutationError"
)

// Error is returned by the workflows for every fault. Rejections are not faults and are reported
// through Result instead.
type Error struct {
	Kind     ErrorKind
	Reason   Reason
	Stage    Stage
	Database string
	User     string
	// Message is the account of the workflow up to the failure followed by the cause.
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at stage %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a workflow error, or an empty kind if err did not come from a workflow.
func KindOf(err error) ErrorKind {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Kind
	}
	return ""
}

// ReasonOf returns the reason code of a workflow error, or an empty reason if err did not come from a workflow.
func ReasonOf(err error) Reason {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Reason
	}
	return ""
}
