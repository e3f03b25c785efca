package account

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt output: $2a$/$2b$/$2y$, two-digit cost, 53 chars of salt+digest.
var bcryptFormat = regexp.MustCompile(`^\$2[ayb]\$\d{2}\$[./A-Za-z0-9]{53}$`)

func HashSecret(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("hash secret: empty value")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret checks a plaintext secret against a stored bcrypt hash.
func VerifySecret(plaintext, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// IsHashed reports whether a value already carries the bcrypt format signature.
func IsHashed(value string) bool {
	return bcryptFormat.MatchString(value)
}

// EnsureHashed returns a stored-hash form of the incoming secret: values that
// already match the bcrypt format pass through unchanged, anything else is
// hashed. Re-hashing an already-hashed value would corrupt the credential, so
// this one policy is applied on every write path that accepts a secret.
func EnsureHashed(secret string) (string, error) {
	if IsHashed(secret) {
		return secret, nil
	}
	return HashSecret(secret)
}
