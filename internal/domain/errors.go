package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExceeded signals that a daily quota is spent and the run must halt.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	// ErrPermanentMedia signals that the remote service rejected the item itself.
	ErrPermanentMedia = errors.New("permanent media rejection")
	// ErrRetriesExhausted signals that every attempt of a remote call failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrInvalidConfig signals an invalid configuration value.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrReconcileUnavailable signals that the authoritative usage source returned nothing usable.
	ErrReconcileUnavailable = errors.New("authoritative usage unavailable")
)

// QuotaKind names the quota that stopped the run.
type QuotaKind string

// Quota kinds.
const (
	QuotaRequests QuotaKind = "requests"
	QuotaBytes    QuotaKind = "bytes"
	// QuotaRemote means the remote service itself reported the daily quota as spent.
	QuotaRemote QuotaKind = "remote"
)

// QuotaExceededError wraps ErrQuotaExceeded with the next reset boundary.
type QuotaExceededError struct {
	Kind              QuotaKind
	ResetAt           time.Time
	SecondsUntilReset int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s (%s): resets at %s, in %ds",
		ErrQuotaExceeded.Error(), e.Kind, e.ResetAt.Format(time.RFC3339), e.SecondsUntilReset)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaExceeded creates a quota exceeded error relative to now.
func NewQuotaExceeded(kind QuotaKind, resetAt, now time.Time) error {
	secs := int64(resetAt.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &QuotaExceededError{Kind: kind, ResetAt: resetAt, SecondsUntilReset: secs}
}

// PermanentMediaError wraps ErrPermanentMedia with the remote diagnostic output.
type PermanentMediaError struct {
	Output string
}

func (e *PermanentMediaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPermanentMedia.Error(), e.Output)
}

func (e *PermanentMediaError) Unwrap() error { return ErrPermanentMedia }

// RetriesExhaustedError wraps ErrRetriesExhausted with the last failure output.
type RetriesExhaustedError struct {
	Attempts   int
	LastOutput string
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %s", ErrRetriesExhausted.Error(), e.Attempts, e.LastOutput)
}

func (e *RetriesExhaustedError) Unwrap() error { return ErrRetriesExhausted }
