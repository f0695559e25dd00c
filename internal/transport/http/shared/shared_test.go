package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalDate(t *testing.T) {
	got, err := OptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = OptionalDate("2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), *got)

	got, err = OptionalDate("2026-03-31T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())

	_, err = OptionalDate("31/03/2026")
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Status string `json:"status"`
	}

	rec := httptest.NewRecorder()
	ok := DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"completed"}`)), &payload)
	assert.True(t, ok)
	assert.Equal(t, "completed", payload.Status)

	rec = httptest.NewRecorder()
	assert.True(t, DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", http.NoBody), &payload))

	rec = httptest.NewRecorder()
	assert.False(t, DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`)), &payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
