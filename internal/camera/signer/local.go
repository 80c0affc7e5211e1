package signer

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"
)

// LocalSigner signs with an in-process RSA key loaded from a PEM file. It
// exists for development rigs without a TPM; the signature scheme is the
// same rsassa/sha256 the hardware path produces, so the verifier cannot
// tell them apart.
type LocalSigner struct {
	key *rsa.PrivateKey
	mu  sync.Mutex
}

func NewLocalSigner(key *rsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// LoadLocalSigner reads a PKCS#1 or PKCS#8 RSA private key PEM.
func LoadLocalSigner(path string) (*LocalSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no pem block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return NewLocalSigner(key), nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key in %s is not RSA", path)
	}
	return NewLocalSigner(key), nil
}

func (s *LocalSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest)
}
