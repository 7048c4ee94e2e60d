package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/shop-backend/internal/apperr"
)

func TestWriteErrorEnvelope(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{apperr.New(apperr.ErrConflict, "Email already in use"), 409, "conflict", "Email already in use"},
		{apperr.ErrUnauthorized, 401, "unauthorized", "unauthorized"},
		{errors.New("pq: connection reset"), 500, "internal_error", "internal error"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, c.err)
		assert.Equal(t, c.status, rec.Code)
		var body APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, c.code, body.Code)
		assert.Equal(t, c.msg, body.Message)
	}
}

func TestDecode(t *testing.T) {
	var v struct{ Name string }
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"x"}`))
	require.NoError(t, Decode(r, &v))
	assert.Equal(t, "x", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.NoError(t, Decode(r, &v))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{nope`))
	assert.ErrorIs(t, Decode(r, &v), apperr.ErrInvalidInput)
}
