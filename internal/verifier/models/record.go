package models

import "time"

// VerificationRecord is the registry row for one piece of media, keyed by
// the SHA-256 of the raw bytes so re-processing the same object is an
// update, not a duplicate.
type VerificationRecord struct {
	ImageHash    string
	Fingerprint  string
	CameraNumber string
	MediaDate    string
	MediaTime    string
	Location     string
	Signature    string
	Verified     bool
	ArchiveKey   string
	VerifiedAt   time.Time
}
