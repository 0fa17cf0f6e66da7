package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsGet(t *testing.T, origins []string, origin, method string) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/api/quotes/state", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	CORS(origins)(next).ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	rec := corsGet(t, []string{"https://app.example.com"}, "https://APP.example.com", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://APP.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	rec := corsGet(t, []string{"https://app.example.com"}, "https://evil.example.com", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSEmptyListAllowsAll(t *testing.T) {
	rec := corsGet(t, nil, "https://anywhere.example.com", http.MethodGet)
	assert.Equal(t, "https://anywhere.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardEntryAllowsAll(t *testing.T) {
	rec := corsGet(t, []string{"*"}, "https://anywhere.example.com", http.MethodGet)
	assert.Equal(t, "https://anywhere.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec := corsGet(t, nil, "https://app.example.com", http.MethodOptions)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
