package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	h := Middleware([]string{"http://localhost:8080"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	serve := func(method, origin string, preflight bool) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, "/api/crew", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if preflight {
			r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("no origin passes through", func(t *testing.T) {
		w := serve(http.MethodGet, "", false)
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allowed origin is echoed with credentials", func(t *testing.T) {
		w := serve(http.MethodGet, "http://localhost:8080", false)
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("allowed preflight short-circuits", func(t *testing.T) {
		w := serve(http.MethodOptions, "http://localhost:8080", true)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, allowMethods, w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, allowHeaders, w.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("foreign preflight is refused", func(t *testing.T) {
		w := serve(http.MethodOptions, "https://evil.example", true)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("foreign simple request gets no cors headers", func(t *testing.T) {
		w := serve(http.MethodGet, "https://evil.example", false)
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
