package access

import (
	"errors"
	"testing"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/usercontext"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeSelf(t *testing.T) {
	tests := []struct {
		name   string
		caller usercontext.UserContext
		target uint
		want   error
	}{
		{"own subscription", usercontext.UserContext{UserID: 1, IsLoggedIn: true}, 1, nil},
		{"other user", usercontext.UserContext{UserID: 1, IsLoggedIn: true}, 2, apperror.ErrForbidden},
		{"admin is still self only", usercontext.UserContext{UserID: 1, IsLoggedIn: true, IsAdmin: true}, 2, apperror.ErrForbidden},
		{"anonymous", usercontext.UserContext{}, 1, apperror.ErrUnauthorized},
		{"zero target", usercontext.UserContext{UserID: 1, IsLoggedIn: true}, 0, apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeSelf(tt.caller, tt.target)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
