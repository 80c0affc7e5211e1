// Package signer produces the detached signature over a capture digest.
// The production implementation delegates to a hardware-backed key via the
// tpm2 command-line tool; the entire external call is serialized because the
// module is a shared single-threaded resource.
package signer

import "context"

// Signer signs a 32-byte SHA-256 digest and returns the raw signature bytes.
// Implementations must be safe for concurrent use; at most one signing
// operation may be in flight system-wide.
type Signer interface {
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}
