// Package envelope implements the byte contract that binds a capture to its
// origin: a delimiter-free concatenation of identity, device, media and
// capture-condition fields, its SHA-256 digest, and RSASSA-PKCS1-v1_5
// verification of a detached signature over that digest.
//
// The signer and the verifier must call the identical Build with identically
// rendered fields. There is no length prefixing and no separator, so any
// change to field order, encoding or decimal formatting invalidates every
// previously issued signature.
package envelope

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"

	"github.com/photolock/photolock/internal/common"
)

// Fields are the logical capture-condition fields of an envelope, in the
// order they are concatenated (media goes between CameraNumber and Date).
type Fields struct {
	Fingerprint  string
	CameraNumber string
	Date         string
	Time         string
	Location     string
}

// Build returns the signable byte sequence for the given fields and raw
// media bytes. It is pure and deterministic; media is never re-encoded.
func Build(f Fields, media []byte) []byte {
	buf := make([]byte, 0, len(f.Fingerprint)+len(f.CameraNumber)+len(media)+len(f.Date)+len(f.Time)+len(f.Location))
	buf = append(buf, f.Fingerprint...)
	buf = append(buf, f.CameraNumber...)
	buf = append(buf, media...)
	buf = append(buf, f.Date...)
	buf = append(buf, f.Time...)
	buf = append(buf, f.Location...)
	return buf
}

// Digest returns SHA-256 over the envelope. Computed exactly once per
// capture on the signing side; recomputed by the verifier from the rebuilt
// envelope.
func Digest(env []byte) [sha256.Size]byte {
	return sha256.Sum256(env)
}

// Verify checks a detached RSASSA-PKCS1-v1_5 signature over the envelope
// digest. It returns common.ErrInvalidSignature when the signature does not
// match; that is a verification outcome, not a system failure.
func Verify(env []byte, signature []byte, pub *rsa.PublicKey) error {
	if pub == nil {
		return fmt.Errorf("verify: nil public key")
	}
	d := Digest(env)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, d[:], signature); err != nil {
		return common.ErrInvalidSignature
	}
	return nil
}
