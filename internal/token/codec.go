package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrInvalid = errors.New("invalid token")
	// ErrExpired wraps ErrInvalid so callers matching the broad class still catch it.
	ErrExpired = fmt.Errorf("%w: expired", ErrInvalid)
)

type Claims struct {
	Subject   string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and verifies signed, self-contained session tokens. Tokens are
// stateless: a signature and expiry check alone determine validity, and
// rotating the signing key invalidates everything outstanding.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the codec's clock.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func (c *Codec) Issue(subject string, kind Kind) (string, time.Time, error) {
	now := c.now().UTC()
	expiresAt := now.Add(c.ttl(kind))

	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"typ": string(kind),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, expiresAt, nil
}

// Verify checks signature, expiry and token kind. Expiry uses an exact
// comparison against the codec clock, no leeway for skew.
func (c *Codec) Verify(value string, expected Kind) (Claims, error) {
	raw := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(value, raw, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalid
	}

	kind, _ := raw["typ"].(string)
	if Kind(kind) != expected {
		return Claims{}, fmt.Errorf("%w: unexpected kind %q", ErrInvalid, kind)
	}

	subject, _ := raw["sub"].(string)
	if subject == "" {
		return Claims{}, ErrInvalid
	}

	claims := Claims{Subject: subject, Kind: Kind(kind)}
	if iat, ok := raw["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := raw["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}

	return claims, nil
}

// AccessTTL reports the configured access-token lifetime in seconds, the shape
// expires_in uses on the wire.
func (c *Codec) AccessTTL() int64 {
	return int64(c.accessTTL.Seconds())
}
