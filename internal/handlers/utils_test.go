package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itparc/inventory/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", services.ErrDuplicateSerial), http.StatusBadRequest},
		{services.ErrAssigneeNotFound, http.StatusBadRequest},
		{services.ErrLastAdmin, http.StatusBadRequest},
		{services.ErrSelfDelete, http.StatusBadRequest},
		{services.ErrInvalidToken, http.StatusUnauthorized},
		{services.ErrUserNotFound, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrStorageDisabled, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"Bearer":           "",
		"Bearer abc":       "abc",
		"bearer  abc ":     "abc",
		"Token abc":        "",
		"Bearer abc extra": "abc extra",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, bearerToken(req), "header %q", header)
	}
}
