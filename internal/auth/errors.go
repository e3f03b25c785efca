package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCredentials covers both a wrong secret and an unknown identifier,
// so login responses never reveal whether an account exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

var (
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is reported distinctly for user messaging but still
	// matches ErrTokenInvalid.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrTokenInvalid)
)

// ErrAccountLocked terminates a login attempt while the lock window is open.
type ErrAccountLocked struct {
	Until time.Time
}

func (e ErrAccountLocked) Error() string {
	return "account temporarily locked"
}
