package model

import (
	"errors"
	"fmt"
)

// Kind tags a resolution failure. Only the kind is a stable contract;
// details are for logging.
type Kind string

// Failure kinds.
const (
	KindNotFound         Kind = "not_found"
	KindRegionRestricted Kind = "region_restricted"
	KindNetwork          Kind = "network"
	KindProtocol         Kind = "protocol"
	KindNoCredential     Kind = "no_credential"
	KindCancelled        Kind = "cancelled"
)

// Sentinels matched by errors.Is against a *Failure of the same kind.
var (
	ErrNotFound         = errors.New("not found")
	ErrRegionRestricted = errors.New("incompatible with device profile or region restricted")
	ErrNetwork          = errors.New("network error")
	ErrProtocol         = errors.New("protocol error")
	ErrNoCredential     = errors.New("no credential available")
	ErrCancelled        = errors.New("cancelled")
	ErrExhausted        = errors.New("attempts exhausted")
)

var kindSentinels = map[Kind]error{
	KindNotFound:         ErrNotFound,
	KindRegionRestricted: ErrRegionRestricted,
	KindNetwork:          ErrNetwork,
	KindProtocol:         ErrProtocol,
	KindNoCredential:     ErrNoCredential,
	KindCancelled:        ErrCancelled,
}

// Failure is a classified resolution failure.
type Failure struct {
	Kind   Kind
	Detail string
	Err    error
}

// NewFailure creates a Failure without an underlying cause.
func NewFailure(kind Kind, detail string) *Failure {
	return &Failure{Kind: kind, Detail: detail}
}

// WrapFailure creates a Failure that keeps err as its cause.
func WrapFailure(kind Kind, detail string, err error) *Failure {
	return &Failure{Kind: kind, Detail: detail, Err: err}
}

func (f *Failure) Error() string {
	msg := kindSentinels[f.Kind]
	base := string(f.Kind)
	if msg != nil {
		base = msg.Error()
	}
	switch {
	case f.Detail != "" && f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", base, f.Detail, f.Err)
	case f.Detail != "":
		return fmt.Sprintf("%s: %s", base, f.Detail)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", base, f.Err)
	}
	return base
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// Is matches the kind sentinel.
func (f *Failure) Is(target error) bool {
	return kindSentinels[f.Kind] == target
}

// Retryable reports whether a fresh credential may fix the failure.
// Everything except cancellation is treated as credential specific.
func (f *Failure) Retryable() bool {
	return f.Kind != KindCancelled
}

// KindOf returns the kind of err, or KindProtocol for unclassified errors.
// For an ExhaustedError it is the kind of the last failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindProtocol
}

// ExhaustedError terminates a resolution that ran out of attempts. Last is the
// last observed failure, or a NoCredential failure when every attempt failed
// at issuance.
type ExhaustedError struct {
	Attempts int
	Last     *Failure
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrExhausted, e.Attempts, e.Last)
}

// Unwrap exposes the last failure.
func (e *ExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// Is matches ErrExhausted.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }
