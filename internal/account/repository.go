package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the Postgres-backed Store. Lock-state writes are plain
// last-writer-wins updates: concurrent attempts against one account may
// undercount failures, which is an accepted weak-consistency guarantee.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const accountColumns = `id, name, email, password_hash, role, locked, failed_attempts, locked_at, created_at, updated_at`

func (r *Repository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, email)
	return scanAccount(row, "query account by email")
}

func (r *Repository) FindByID(ctx context.Context, id string) (Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row, "query account by id")
}

func (r *Repository) Save(ctx context.Context, acc Account) (Account, error) {
	acc.UpdatedAt = time.Now().UTC()

	var lockedAt sql.NullTime
	if acc.LockedAt != nil {
		lockedAt = sql.NullTime{Time: acc.LockedAt.UTC(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = $2, email = $3, password_hash = $4, role = $5,
		    locked = $6, failed_attempts = $7, locked_at = $8, updated_at = $9
		WHERE id = $1
	`, acc.ID, acc.Name, acc.Email, acc.PasswordHash, string(acc.Role),
		acc.Locked, acc.FailedAttempts, lockedAt, acc.UpdatedAt)
	if err != nil {
		return Account{}, fmt.Errorf("update account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Account{}, fmt.Errorf("update account rows affected: %w", err)
	}
	if affected == 0 {
		return Account{}, ErrNotFound
	}

	return acc, nil
}

func (r *Repository) Create(ctx context.Context, acc Account) (Account, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Account{}, fmt.Errorf("generate account id: %w", err)
	}

	now := time.Now().UTC()
	acc.ID = id.String()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, role, locked, failed_attempts, locked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, $8)
	`, acc.ID, acc.Name, acc.Email, acc.PasswordHash, string(acc.Role),
		acc.Locked, acc.FailedAttempts, now)
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}

	return acc, nil
}

// EnsureAdmin seeds a super-admin account on startup when none exists for the
// configured email. An existing account is left untouched.
func (r *Repository) EnsureAdmin(ctx context.Context, name, email, plainPassword string) error {
	if email == "" || plainPassword == "" {
		return nil
	}

	_, err := r.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := HashSecret(plainPassword)
	if err != nil {
		return err
	}

	_, err = r.Create(ctx, Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleSuperAdmin,
	})
	return err
}

func scanAccount(row *sql.Row, op string) (Account, error) {
	var acc Account
	var role string
	var lockedAt sql.NullTime

	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &role,
		&acc.Locked, &acc.FailedAttempts, &lockedAt, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}

	acc.Role = Role(role)
	if lockedAt.Valid {
		value := lockedAt.Time.UTC()
		acc.LockedAt = &value
	}

	return acc, nil
}
