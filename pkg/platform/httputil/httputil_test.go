package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "crewauction/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error hides the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("db exploded"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, "internal", body.Code)
		assert.NotContains(t, body.Error, "db exploded")
	})

	t.Run("domain error keeps its message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInsufficientFunds, "insufficient budget"))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "insufficient_funds", body.Code)
		assert.Equal(t, "insufficient budget", body.Error)
	})
}

type pingRequest struct {
	Name string `json:"name"`
}

func (p *pingRequest) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	decode := func(body string) (*pingRequest, *httptest.ResponseRecorder, bool) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[pingRequest](w, r, slog.New(slog.NewTextHandler(io.Discard, nil)), r.Context(), "req-1")
		return req, w, ok
	}

	req, _, ok := decode(`{"name":"  red  "}`)
	require.True(t, ok)
	assert.Equal(t, "red", req.Name)

	_, w, ok := decode(`{`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, w, ok = decode(`{"name":""}`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
