package signer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/photolock/photolock/internal/common"
)

// runCommand is indirected for tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return out, err
}

// TPMSigner signs digests with the device key resident in the TPM, by
// shelling out to "tpm2 sign" with the digest and signature passed through
// temp files. The key handle maps 1:1 to the registered camera number; the
// private key never leaves the module.
type TPMSigner struct {
	// KeyHandle is the persistent TPM handle of the device key,
	// e.g. "0x81010001".
	KeyHandle string

	mu sync.Mutex
}

func NewTPMSigner(keyHandle string) *TPMSigner {
	return &TPMSigner{KeyHandle: keyHandle}
}

// Sign runs one rsassa/sha256 signing operation. The mutex is held around
// the whole external call, not just digest handling. Any non-zero exit or
// missing output file yields common.ErrSigningUnavailable wrapped with the
// tool's diagnostic output; the caller must abort that capture's pipeline.
func (s *TPMSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	digestFile, err := os.CreateTemp("", "photolock-digest-*")
	if err != nil {
		return nil, fmt.Errorf("digest temp file: %w", err)
	}
	defer os.Remove(digestFile.Name())

	if _, err := digestFile.Write(digest); err != nil {
		digestFile.Close()
		return nil, fmt.Errorf("write digest: %w", err)
	}
	if err := digestFile.Close(); err != nil {
		return nil, fmt.Errorf("close digest: %w", err)
	}

	signatureFile, err := os.CreateTemp("", "photolock-sig-*")
	if err != nil {
		return nil, fmt.Errorf("signature temp file: %w", err)
	}
	signatureFile.Close()
	defer os.Remove(signatureFile.Name())

	out, err := runCommand(ctx, "tpm2", "sign",
		"-Q",
		"-c", s.KeyHandle,
		"-g", "sha256",
		"-d", digestFile.Name(),
		"-f", "plain",
		"-s", "rsassa",
		"-o", signatureFile.Name(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: tpm2 sign: %s (%s)", common.ErrSigningUnavailable, err, out)
	}

	signature, err := os.ReadFile(signatureFile.Name())
	if err != nil || len(signature) == 0 {
		return nil, fmt.Errorf("%w: no signature produced", common.ErrSigningUnavailable)
	}

	return signature, nil
}
