package auth

import (
	"github.com/vbg-space/core/internal/pkg/apperr"
)

const (
	maxUsernameLength = 50
	maxPasswordLength = 200
)

var (
	ErrMissingCredentials = apperr.New(apperr.KindValidation, "missing credentials")
	ErrInvalidCredentials = apperr.New(apperr.KindInvalidCredentials, "invalid credentials")
	ErrUnauthenticated    = apperr.New(apperr.KindUnauthenticated, "not authorized")
	ErrSessionExpired     = apperr.New(apperr.KindSessionExpired, "session expired, please sign in again")
)

type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionStatus struct {
	Authenticated bool `json:"authenticated"`
}
