package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/shared"
)

func TestScopeMiddlewareRequiresTenant(t *testing.T) {
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without tenant identity")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScopeMiddlewareRejectsBadTenant(t *testing.T) {
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, raw := range []string{"0", "-3", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderTenantID, raw)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "tenant header %q", raw)
	}
}

func TestScopeMiddlewareInjectsScope(t *testing.T) {
	var got shared.Scope
	handler := ScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := shared.ScopeFromContext(r.Context())
		require.True(t, ok)
		got = scope
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, "42")
	req.Header.Set(HeaderActorID, "7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), got.TenantID)
	assert.Equal(t, int64(7), got.ActorID)
}
