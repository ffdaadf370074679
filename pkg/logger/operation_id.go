// Package logger carries request scoped logging context on top of glog.
package logger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/xid"
)

// OperationIDHeader is the response header echoing the operation ID of a request.
const OperationIDHeader = "X-Operation-ID"

type contextKey string

// OperationIDKey is the context key holding the operation ID.
const OperationIDKey contextKey = "opID"

// NewOperationID returns a new, relatively unique operation ID.
func NewOperationID() string {
	return xid.New().String()
}

// WithOperationID returns a context carrying opID. An existing operation ID is kept.
func WithOperationID(ctx context.Context, opID string) context.Context {
	if GetOperationID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, OperationIDKey, opID)
}

// GetOperationID returns the operation ID stored in ctx, or an empty string.
func GetOperationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if opID, ok := ctx.Value(OperationIDKey).(string); ok {
		return opID
	}
	return ""
}

// Prefix returns a log line prefix naming the operation ID of ctx, or an empty string if there is none.
func Prefix(ctx context.Context) string {
	opID := GetOperationID(ctx)
	if opID == "" {
		return ""
	}
	return fmt.Sprintf("[%s=%s] ", OperationIDKey, opID)
}

// OperationIDMiddleware sets a relatively unique operation ID in the context of each request.
// A caller supplied X-Operation-ID header is reused.
func OperationIDMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opID := r.Header.Get(OperationIDHeader)
		if opID == "" {
			opID = NewOperationID()
		}
		ctx := WithOperationID(r.Context(), opID)
		w.Header().Set(OperationIDHeader, GetOperationID(ctx))
		handler.ServeHTTP(w, r.WithContext(ctx))
	})
}
