package account

import "time"

const (
	DefaultLockThreshold = 5
	DefaultLockDuration  = 15 * time.Minute
)

type LockDecision int

const (
	// Allowed lets the attempt proceed to credential verification.
	Allowed LockDecision = iota
	// Locked terminates the attempt; the lock window is still open.
	Locked
	// AutoUnlockable means the lock window has elapsed: the caller must clear
	// the lock state and persist it before proceeding as Allowed.
	AutoUnlockable
)

// Policy is the pure lockout decision logic. It holds no state and touches no
// storage; time is always passed in by the caller.
type Policy struct {
	Threshold    int
	LockDuration time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultLockThreshold, LockDuration: DefaultLockDuration}
}

func (p Policy) Evaluate(acc Account, now time.Time) LockDecision {
	if !acc.Locked {
		return Allowed
	}
	// Locked without a timestamp is inconsistent state; fail open.
	if acc.LockedAt == nil {
		return Allowed
	}
	if now.Sub(*acc.LockedAt) > p.LockDuration {
		return AutoUnlockable
	}
	return Locked
}

// RecordFailure increments the failure counter and trips the lock once the
// threshold is reached. Counting is lifetime: failures never decay on their
// own, only a successful login or an unlock clears them.
func (p Policy) RecordFailure(acc Account, now time.Time) Account {
	acc.FailedAttempts++
	if acc.FailedAttempts >= p.Threshold {
		acc.Locked = true
		lockedAt := now.UTC()
		acc.LockedAt = &lockedAt
	}
	return acc
}

func (p Policy) RecordSuccess(acc Account) Account {
	acc.FailedAttempts = 0
	acc.Locked = false
	acc.LockedAt = nil
	return acc
}

// LockedUntil reports when the current lock window closes.
func (p Policy) LockedUntil(acc Account) time.Time {
	if acc.LockedAt == nil {
		return time.Time{}
	}
	return acc.LockedAt.Add(p.LockDuration)
}
