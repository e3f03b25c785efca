package account

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Admin reports whether the role may perform administrative operations.
func (r Role) Admin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Account is the identity record. Lock state lives on the record itself:
// FailedAttempts is 0 whenever Locked is false and LockedAt is nil, except
// transiently inside the failure-increment step.
type Account struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	Locked         bool
	FailedAttempts int
	LockedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var ErrNotFound = errors.New("account not found")

// Store is the externally owned account persistence. Concurrent saves of the
// same record are last-writer-wins; durability and write serialization are the
// store's concern, not this package's.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	Save(ctx context.Context, acc Account) (Account, error)
}
