// Package common defines shared constants and sentinel errors used across
// the telemetry server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation / request-shape errors.
	ErrValidation     = errors.New("validation error")
	ErrMalformedBatch = errors.New("malformed batch")

	// Identity errors.
	ErrDuplicateUser      = errors.New("user with this username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Authorization errors.
	ErrInsufficientRole = errors.New("insufficient role for this operation")
	ErrRecordFrozen     = errors.New("record belongs to a closed quarter and can no longer be modified")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// BatchError reports which entry of a bulk request aborted the batch.
// Index is the zero-based position in the request; ID is nil when the
// entry carried no id at all.
type BatchError struct {
	Index int
	ID    *int64
	Err   error
}

func (e *BatchError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("batch entry %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("batch entry %d (id=%d): %v", e.Index, *e.ID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
