// Package common defines shared constants and sentinel errors used across
// the camera and verifier layers of PhotoLock. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Signer errors. A capture whose signing fails is aborted; it must never
	// be queued or uploaded unsigned.
	ErrSigningUnavailable = errors.New("signing unavailable")

	// Session errors.
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrCaptureInProgress = errors.New("capture in progress")
	ErrNotRecording      = errors.New("not recording")
	ErrWrongMode         = errors.New("wrong recording mode")

	// Queue errors. A corrupt entry is a pair with a missing half; it is
	// skipped and left on disk for manual inspection.
	ErrCorruptQueueEntry = errors.New("corrupt queue entry")

	// Verifier errors. ErrInvalidSignature is a legitimate negative
	// verification outcome, not a system failure.
	ErrUnknownCamera    = errors.New("unknown camera")
	ErrInvalidSignature = errors.New("invalid signature")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
