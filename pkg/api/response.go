package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
	"github.com/stackrox/mongo-tenant-manager/pkg/provisioning"
)

const statusError = "error"

// Response is the body of every /create and /delete response.
type Response struct {
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Database    string `json:"database,omitempty"`
	User        string `json:"user,omitempty"`
	Message     string `json:"message"`
	OperationID string `json:"operation_id,omitempty"`
}

var reasonStatusCodes = map[provisioning.Reason]int{
	provisioning.ReasonDatabaseExists:       http.StatusConflict,
	provisioning.ReasonQuotaExceeded:        http.StatusForbidden,
	provisioning.ReasonInvalidRequest:       http.StatusBadRequest,
	provisioning.ReasonAuthenticationFailed: http.StatusUnauthorized,
	provisioning.ReasonConnectionError:      http.StatusServiceUnavailable,
	provisioning.ReasonDirectoryQueryError:  http.StatusInternalServerError,
	provisioning.ReasonMutationError:        http.StatusInternalServerError,
}

func statusCodeForReason(reason provisioning.Reason) int {
	if code, ok := reasonStatusCodes[reason]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func statusCodeForResult(result *provisioning.Result) int {
	switch result.Outcome {
	case provisioning.OutcomeCreated:
		return http.StatusCreated
	case provisioning.OutcomeDeleted:
		return http.StatusOK
	default:
		return statusCodeForReason(result.Reason)
	}
}

func newResultResponse(r *http.Request, result *provisioning.Result) Response {
	return Response{
		Status:      string(result.Outcome),
		Reason:      string(result.Reason),
		Database:    result.Database,
		User:        result.User,
		Message:     result.Message(),
		OperationID: logger.GetOperationID(r.Context()),
	}
}

func newErrorResponse(r *http.Request, err error) Response {
	resp := Response{
		Status:      statusError,
		Reason:      string(provisioning.ReasonOf(err)),
		Message:     err.Error(),
		OperationID: logger.GetOperationID(r.Context()),
	}
	var wfErr *provisioning.Error
	if errors.As(err, &wfErr) {
		resp.Database = wfErr.Database
		resp.User = wfErr.User
		resp.Message = wfErr.Message
	}
	return resp
}

// sendWorkflowResponse writes the outcome of a workflow. It returns false if the response could not be
// delivered to the client.
func sendWorkflowResponse(w http.ResponseWriter, r *http.Request, result *provisioning.Result, err error) bool {
	if err != nil {
		return sendResponse(w, r, newErrorResponse(r, err), statusCodeForReason(provisioning.ReasonOf(err)))
	}
	return sendResponse(w, r, newResultResponse(r, result), statusCodeForResult(result))
}

func sendError(w http.ResponseWriter, r *http.Request, reason provisioning.Reason, message string, statusCode int) {
	sendResponse(w, r, Response{
		Status:      statusError,
		Reason:      string(reason),
		Message:     message,
		OperationID: logger.GetOperationID(r.Context()),
	}, statusCode)
}

func sendResponse(w http.ResponseWriter, r *http.Request, resp Response, statusCode int) bool {
	if wantsPlainText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(statusCode)
		if _, err := fmt.Fprint(w, resp.Message); err != nil {
			glog.Errorf("%sFailed writing text response: %v", logger.Prefix(r.Context()), err)
			return false
		}
		return true
	}
	if err := jsonResponse(w, resp, statusCode); err != nil {
		glog.Errorf("%sFailed creating json response: %v", logger.Prefix(r.Context()), err)
		return false
	}
	return true
}

func jsonResponse(w http.ResponseWriter, body interface{}, statusCode int) error {
	j, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_, err = w.Write(j)
	if err != nil {
		return fmt.Errorf("failed to write json response: %w", err)
	}

	return nil
}

// wantsPlainText reports whether the first media type in the Accept header the server can produce is
// text/plain. Entries with q=0 are skipped; other q-values do not reorder the list.
func wantsPlainText(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	for _, part := range strings.Split(accept, ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if q, ok := params["q"]; ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v <= 0 {
				continue
			}
		}
		switch mt {
		case "text/plain":
			return true
		case "application/json", "*/*", "application/*":
			return false
		}
	}
	return false
}

func sendNotFound(w http.ResponseWriter, r *http.Request) {
	sendError(w, r, "not_found", fmt.Sprintf("The requested resource '%s' doesn't exist", r.URL.Path), http.StatusNotFound)
}

func sendMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendError(w, r, "method_not_allowed", fmt.Sprintf("Method %s is not allowed on '%s'", r.Method, r.URL.Path), http.StatusMethodNotAllowed)
}
