package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/photolock/photolock/internal/common"
	"github.com/photolock/photolock/internal/dbx"
	"github.com/photolock/photolock/internal/verifier/models"
)

type PostgresCameraRepository struct {
	db dbx.DBTX
}

func NewPostgresCameraRepository(db dbx.DBTX) *PostgresCameraRepository {
	return &PostgresCameraRepository{db: db}
}

// Register stores or replaces the PEM public key for a camera number.
// Re-enrolling a device is a key rotation, not an error.
func (r *PostgresCameraRepository) Register(ctx context.Context, camera *models.Camera) error {

	query :=
		`INSERT INTO cameras (camera_number, public_key)
         VALUES ($1, $2)
		 ON CONFLICT (camera_number) DO UPDATE SET public_key = EXCLUDED.public_key
		 `

	_, err := r.db.ExecContext(ctx, query, camera.Number, camera.PublicKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresCameraRepository) GetPublicKey(ctx context.Context, number string) ([]byte, error) {
	query :=
		`SELECT public_key FROM cameras
		 WHERE camera_number = $1
		 `

	var key []byte
	err := r.db.QueryRowContext(ctx, query, number).Scan(&key)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUnknownCamera
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

type PostgresRecordRepository struct {
	db dbx.DBTX
}

func NewPostgresRecordRepository(db dbx.DBTX) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

// Upsert writes the record keyed by content hash. Processing the same media
// twice updates the row in place.
func (r *PostgresRecordRepository) Upsert(ctx context.Context, record *models.VerificationRecord) error {

	query :=
		`INSERT INTO records (image_hash, fingerprint, camera_number, media_date, media_time, location, signature, verified, archive_key, verified_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		 ON CONFLICT (image_hash) DO UPDATE SET
		   fingerprint = EXCLUDED.fingerprint,
		   camera_number = EXCLUDED.camera_number,
		   media_date = EXCLUDED.media_date,
		   media_time = EXCLUDED.media_time,
		   location = EXCLUDED.location,
		   signature = EXCLUDED.signature,
		   verified = EXCLUDED.verified,
		   archive_key = EXCLUDED.archive_key,
		   verified_at = now()
		 `

	_, err := r.db.ExecContext(ctx, query,
		record.ImageHash, record.Fingerprint, record.CameraNumber,
		record.MediaDate, record.MediaTime, record.Location,
		record.Signature, record.Verified, record.ArchiveKey)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRecordRepository) GetByHash(ctx context.Context, imageHash string) (*models.VerificationRecord, error) {
	query :=
		`SELECT image_hash, fingerprint, camera_number, media_date, media_time, location, signature, verified, archive_key, verified_at FROM records
		 WHERE image_hash = $1
		 `

	record := &models.VerificationRecord{}
	err := r.db.QueryRowContext(ctx, query, imageHash).Scan(
		&record.ImageHash, &record.Fingerprint, &record.CameraNumber,
		&record.MediaDate, &record.MediaTime, &record.Location,
		&record.Signature, &record.Verified, &record.ArchiveKey, &record.VerifiedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return record, nil
}

type PostgresContactRepository struct {
	db dbx.DBTX
}

func NewPostgresContactRepository(db dbx.DBTX) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

func (r *PostgresContactRepository) GetPhone(ctx context.Context, identity string) (string, error) {
	query :=
		`SELECT phone FROM contacts
		 WHERE identity = $1
		 `

	var phone string
	err := r.db.QueryRowContext(ctx, query, identity).Scan(&phone)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return phone, nil
}
