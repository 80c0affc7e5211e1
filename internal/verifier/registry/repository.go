// Package registry persists what the verifier knows: enrolled camera keys,
// per-media verification records keyed by content hash, and notification
// contacts.
package registry

import (
	"context"

	"github.com/photolock/photolock/internal/verifier/models"
)

type CameraRepository interface {
	Register(ctx context.Context, camera *models.Camera) error
	GetPublicKey(ctx context.Context, number string) ([]byte, error)
}

type RecordRepository interface {
	Upsert(ctx context.Context, record *models.VerificationRecord) error
	GetByHash(ctx context.Context, imageHash string) (*models.VerificationRecord, error)
}

type ContactRepository interface {
	GetPhone(ctx context.Context, identity string) (string, error)
}
