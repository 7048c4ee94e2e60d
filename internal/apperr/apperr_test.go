package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", Invalid("email is required"), http.StatusBadRequest, "invalid_input"},
		{"credentials", ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials"},
		{"conflict wrapped", fmt.Errorf("users: create: %w", ErrConflict), http.StatusConflict, "conflict"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"invalid token", ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", New(ErrNotFound, "product not found"), http.StatusNotFound, "not_found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("pq: connection refused")))
	assert.Equal(t, "email is required", Message(Invalid("email is required")))
	assert.Equal(t, "not found", Message(fmt.Errorf("wrap: %w", ErrNotFound)))
}

func TestFromCodeRoundTrip(t *testing.T) {
	for _, kind := range []error{ErrInvalidInput, ErrConflict, ErrInvalidCredentials, ErrInvalidToken, ErrNotFound} {
		assert.ErrorIs(t, FromCode(Code(kind)), kind)
	}
	assert.Nil(t, FromCode("nope"))
	assert.ErrorIs(t, FromStatus(http.StatusBadGateway), ErrUnavailable)
}
