package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testHandler(t *testing.T, cfg SecConfig, v *Verifier) (http.Handler, *http.Request) {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := UserIDFromContext(r.Context()); uid != "" {
			w.Header().Set("X-Test-User", uid)
		}
		if IsBackend(r.Context()) {
			w.Header().Set("X-Test-Role", "backend")
		}
		w.WriteHeader(http.StatusOK)
	})
	return Middleware(cfg, v)(inner), httptest.NewRequest("GET", "/v1/users", nil)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	h, r := testHandler(t, SecConfig{}, NewVerifier([]string{"k"}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	h, r := testHandler(t, SecConfig{}, NewVerifier([]string{"k"}))
	r.Header.Set("Authorization", "Bearer alice.deadbeef")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	v := NewVerifier([]string{"k"})
	h, r := testHandler(t, SecConfig{}, v)
	tok, err := v.Sign("alice")
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", w.Header().Get("X-Test-User"))
}

func TestMiddlewareBackendKeyGrantsRole(t *testing.T) {
	cfg := SecConfig{BackendKeys: map[string]struct{}{"bk-1": {}}}
	h, r := testHandler(t, cfg, NewVerifier([]string{"k"}))
	r.Header.Set("X-API-Key", "bk-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "backend", w.Header().Get("X-Test-Role"))
}

func TestMiddlewareUnknownAPIKeyFallsThrough(t *testing.T) {
	cfg := SecConfig{BackendKeys: map[string]struct{}{"bk-1": {}}}
	h, r := testHandler(t, cfg, NewVerifier([]string{"k"}))
	r.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareProbesPassThrough(t *testing.T) {
	h, _ := testHandler(t, SecConfig{}, NewVerifier([]string{"k"}))
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		r := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestMiddlewareCORSPreflight(t *testing.T) {
	cfg := SecConfig{AllowedOrigins: []string{"https://app.example.com"}}
	h, _ := testHandler(t, cfg, NewVerifier([]string{"k"}))

	r := httptest.NewRequest("OPTIONS", "/v1/messages", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	// unlisted origin gets no CORS headers
	r = httptest.NewRequest("OPTIONS", "/v1/messages", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareRateLimit(t *testing.T) {
	v := NewVerifier([]string{"k"})
	h, _ := testHandler(t, SecConfig{RPS: 1, Burst: 2}, v)
	tok, err := v.Sign("alice")
	require.NoError(t, err)

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("GET", "/v1/users", nil)
		r.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes[w.Code]++
	}
	require.Equal(t, 2, codes[http.StatusOK])
	require.Equal(t, 3, codes[http.StatusTooManyRequests])
}
