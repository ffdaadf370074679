// Package provisioning implements the workflows that create and tear down tenant databases
package provisioning

import (
	"fmt"
	"strings"
)

const (
	workflowProvision   = "provision"
	workflowDeprovision = "deprovision"
	workflowList        = "list"
)

// Request names a tenant database and the credential owning it.
type Request struct {
	Database string
	User     string
	Password string
}

// Outcome is the logical result of a workflow that did not fail.
type Outcome string

// Outcome values
const (
	OutcomeCreated  Outcome = "created"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeRejected Outcome = "rejected"
)

// Reason is a machine-readable code explaining a rejection or a failure.
type Reason string

// Reason values
const (
	ReasonDatabaseExists       Reason = "database_exists"
	ReasonQuotaExceeded        Reason = "quota_exceeded"
	ReasonInvalidRequest       Reason = "invalid_request"
	ReasonAuthenticationFailed Reason = "authentication_failed"
	ReasonConnectionError      Reason = "connection_error"
	ReasonDirectoryQueryError  Reason = "directory_query_error"
	ReasonMutationError        Reason = "mutation_error"
)

// Stage is the last step a workflow completed. Workflows move strictly forward through
// Requested, Connected, Checked, Mutated and Confirmed.
type Stage int

// Stage values
const (
	StageRequested Stage = iota
	StageConnected
	StageChecked
	StageMutated
	StageConfirmed
)

var stageNames = map[Stage]string{
	StageRequested: "requested",
	StageConnected: "connected",
	StageChecked:   "checked",
	StageMutated:   "mutated",
	StageConfirmed: "confirmed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Result describes a workflow that ran to a decision: the tenant was created or deleted, or the request
// was rejected before any mutation.
type Result struct {
	Outcome  Outcome
	Reason   Reason
	Database string
	User     string
	Stage    Stage
	messages []string
}

// Message returns the human readable account of the workflow, one line per step.
func (r *Result) Message() string {
	return strings.Join(r.messages, "")
}

// Rejected reports whether the request was turned down without mutation.
func (r *Result) Rejected() bool {
	return r.Outcome == OutcomeRejected
}

// run tracks the progress of one workflow invocation.
type run struct {
	workflow string
	request  Request
	stage    Stage
	messages []string
}

func newRun(workflow string, req Request) *run {
	return &run{workflow: workflow, request: req, stage: StageRequested}
}

func (r *run) advance(stage Stage) {
	if stage <= r.stage {
		panic(fmt.Sprintf("%s workflow cannot move from %s to %s", r.workflow, r.stage, stage))
	}
	r.stage = stage
}

func (r *run) say(format string, args ...interface{}) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *run) result(outcome Outcome, reason Reason) *Result {
	return &Result{
		Outcome:  outcome,
		Reason:   reason,
		Database: r.request.Database,
		User:     r.request.User,
		Stage:    r.stage,
		messages: r.messages,
	}
}

func (r *run) reject(reason Reason) *Result {
	return r.result(OutcomeRejected, reason)
}

func (r *run) confirm(outcome Outcome) *Result {
	r.advance(StageConfirmed)
	return r.result(outcome, "")
}

func (r *run) fail(kind ErrorKind, reason Reason, err error) *Error {
	return &Error{
		Kind:     kind,
		Reason:   reason,
		Stage:    r.stage,
		Database: r.request.Database,
		User:     r.request.User,
		Message:  strings.Join(r.messages, "") + err.Error(),
		Err:      err,
	}
}
