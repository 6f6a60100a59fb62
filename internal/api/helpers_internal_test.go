package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/UnknownOlympus/hermes/internal/form"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{errMissingToken, http.StatusUnauthorized},
		{fmt.Errorf("%w: expired", session.ErrInvalidToken), http.StatusUnauthorized},
		{fmt.Errorf("%w: eof", errBadRequest), http.StatusBadRequest},
		{form.ErrIncompleteDraft, http.StatusBadRequest},
		{models.ErrUnknownPersonnel, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", form.ErrGeocodeFailed, "Atlantis"), http.StatusUnprocessableEntity},
		{form.ErrSubmitInFlight, http.StatusConflict},
		{form.ErrShipmentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", repository.ErrNotFound), http.StatusNotFound},
		{form.ErrUpsertFailed, http.StatusBadGateway},
		{form.ErrDeleteFailed, http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestSessionToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream?token=query", nil)
	assert.Equal(t, "query", sessionToken(req))

	req.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", sessionToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "query", sessionToken(req))
}

func TestLoggingMiddleware_StatusWriter(t *testing.T) {
	t.Parallel()

	sw := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	n, err := sw.Write([]byte("hello"))

	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, sw.status)
	assert.Equal(t, 5, sw.bytes)

	_, _, err = sw.Hijack()
	assert.Error(t, err)
}
