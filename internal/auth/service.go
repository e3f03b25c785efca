package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orders-api/internal/account"
	"orders-api/internal/token"
)

// Service orchestrates login and refresh. Every lock-state mutation is
// persisted synchronously before a response is produced; a store failure
// propagates instead of being retried here.
type Service struct {
	store  account.Store
	codec  *token.Codec
	policy account.Policy
	now    func() time.Time
}

func NewService(store account.Store, codec *token.Codec, policy account.Policy) *Service {
	return &Service{
		store:  store,
		codec:  codec,
		policy: policy,
		now:    time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	ExpiresIn    int64
	Role         account.Role
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now().UTC()

	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}

	switch s.policy.Evaluate(acc, now) {
	case account.Locked:
		return LoginResult{}, ErrAccountLocked{Until: s.policy.LockedUntil(acc)}
	case account.AutoUnlockable:
		acc = s.policy.RecordSuccess(acc)
		if acc, err = s.store.Save(ctx, acc); err != nil {
			return LoginResult{}, fmt.Errorf("persist auto-unlock: %w", err)
		}
	}

	if !account.VerifySecret(password, acc.PasswordHash) {
		acc = s.policy.RecordFailure(acc, now)
		if _, err := s.store.Save(ctx, acc); err != nil {
			return LoginResult{}, fmt.Errorf("persist failed attempt: %w", err)
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	acc = s.policy.RecordSuccess(acc)
	if acc, err = s.store.Save(ctx, acc); err != nil {
		return LoginResult{}, fmt.Errorf("persist successful attempt: %w", err)
	}

	access, expiresAt, err := s.codec.Issue(acc.Email, token.KindAccess)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, _, err := s.codec.Issue(acc.Email, token.KindRefresh)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		ExpiresIn:    s.codec.AccessTTL(),
		Role:         acc.Role,
	}, nil
}

type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Refresh exchanges a valid refresh token for a new access token. The
// presented refresh token is returned unchanged: there is no rotation and no
// server-side token state.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return RefreshResult{}, ErrTokenInvalid
	}

	claims, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return RefreshResult{}, ErrTokenExpired
		}
		return RefreshResult{}, ErrTokenInvalid
	}

	// The subject must still resolve to an account; a token outliving its
	// account is treated like any other invalid token.
	if _, err := s.store.FindByEmail(ctx, claims.Subject); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return RefreshResult{}, ErrTokenInvalid
		}
		return RefreshResult{}, fmt.Errorf("load account for refresh: %w", err)
	}

	access, _, err := s.codec.Issue(claims.Subject, token.KindAccess)
	if err != nil {
		return RefreshResult{}, err
	}

	return RefreshResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    s.codec.AccessTTL(),
	}, nil
}
