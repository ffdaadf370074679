package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefix(t *testing.T) {
	assert.Empty(t, Prefix(context.Background()))

	ctx := WithOperationID(context.Background(), "abc")
	assert.Equal(t, "[opID=abc] ", Prefix(ctx))
}

func TestWithOperationIDKeepsExisting(t *testing.T) {
	ctx := WithOperationID(context.Background(), "first")
	ctx = WithOperationID(ctx, "second")
	assert.Equal(t, "first", GetOperationID(ctx))
}

func TestNewOperationIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewOperationID(), NewOperationID())
}

func TestOperationIDMiddleware(t *testing.T) {
	var seen string
	handler := OperationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetOperationID(r.Context())
	}))

	t.Run("generates an ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create", nil))
		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(OperationIDHeader))
	})

	t.Run("reuses the caller's ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/create", nil)
		req.Header.Set(OperationIDHeader, "from-caller")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "from-caller", seen)
		assert.Equal(t, "from-caller", rec.Header().Get(OperationIDHeader))
	})
}
