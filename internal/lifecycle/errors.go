package lifecycle

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the Engine carries exactly one of these,
// reported by KindOf. Store adapters return ErrNotFound and ErrConflict directly.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage failure")
	ErrNotification      = errors.New("notification failed")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidResolution = errors.New("invalid resolution")
)

// ErrAuditAppend marks a storage failure that happened after the claim write
// committed. The claim change stands; only its log entry is missing.
var ErrAuditAppend = errors.New("activity log append failed")

// OpError carries the operation and claim a failure belongs to.
type OpError struct {
	Op      string
	ClaimID string
	Kind    error
	Err     error
}

func (e *OpError) Error() string {
	if e.ClaimID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ClaimID, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func opErr(op, claimID string, kind, err error) error {
	return &OpError{Op: op, ClaimID: claimID, Kind: kind, Err: err}
}

// storeErr classifies a collaborator error into the taxonomy.
func storeErr(op, claimID string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return opErr(op, claimID, ErrNotFound, err)
	case errors.Is(err, ErrConflict):
		return opErr(op, claimID, ErrConflict, err)
	default:
		return opErr(op, claimID, ErrStorage, err)
	}
}

// KindOf returns the taxonomy kind of err, or nil when err is not a known kind.
// An OpError answers with its own Kind, whatever its cause wraps.
func KindOf(err error) error {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	for _, k := range []error{
		ErrValidation, ErrInvalidStatus, ErrInvalidResolution,
		ErrNotFound, ErrConflict, ErrNotification, ErrStorage,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
