package models

import (
	"errors"
	"fmt"
	"time"
)

// SyncErrorKind classifies failures coming out of a platform adapter.
// The sync worker's state machine branches on the kind, never on the
// underlying error value.
type SyncErrorKind string

const (
	SyncErrTransient   SyncErrorKind = "transient"    // network, 5xx, timeout; retry with backoff
	SyncErrRateLimited SyncErrorKind = "rate_limited" // 429 or platform-declared; honor retry-after
	SyncErrAuth        SyncErrorKind = "auth"         // 401/403 or missing credentials; terminal
	SyncErrNotFound    SyncErrorKind = "not_found"    // unknown remote user; terminal
	SyncErrPermanent   SyncErrorKind = "permanent"    // other 4xx; terminal
)

// SyncError is a classified platform/adapter failure.
type SyncError struct {
	Kind       SyncErrorKind
	RetryAfter time.Duration // meaningful only for SyncErrRateLimited
	Err        error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError wraps err with a classification kind.
func NewSyncError(kind SyncErrorKind, err error) *SyncError {
	return &SyncError{Kind: kind, Err: err}
}

// NewRateLimitedError wraps err as rate-limited with the upstream retry hint.
func NewRateLimitedError(retryAfter time.Duration, err error) *SyncError {
	return &SyncError{Kind: SyncErrRateLimited, RetryAfter: retryAfter, Err: err}
}

// ClassifySyncError extracts the SyncError from an error chain. Unclassified
// errors are treated as transient so that a forgotten wrap never turns a
// recoverable network hiccup into a terminal failure.
func ClassifySyncError(err error) *SyncError {
	var se *SyncError
	if errors.As(err, &se) {
		return se
	}
	return &SyncError{Kind: SyncErrTransient, Err: err}
}

// IsTerminal reports whether the kind must never be retried automatically.
func (k SyncErrorKind) IsTerminal() bool {
	switch k {
	case SyncErrAuth, SyncErrNotFound, SyncErrPermanent:
		return true
	}
	return false
}
