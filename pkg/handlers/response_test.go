package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse_OmitsEmptyFields(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, ErrorResponse(rec, http.StatusRequestTimeout, ErrorBody{Error: "OpenAI API timeout"}))

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"OpenAI API timeout"}`, rec.Body.String())
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]int{"n": 1}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}
