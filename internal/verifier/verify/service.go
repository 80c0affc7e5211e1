// Package verify runs the server-side provenance pipeline: resolve the
// capture record for an object, rebuild the envelope byte for byte, check
// the detached signature against the enrolled camera key, and on success
// archive the media with a playback copy and a best-effort notice.
package verify

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/photolock/photolock/internal/common"
	"github.com/photolock/photolock/internal/envelope"
	"github.com/photolock/photolock/internal/logging"
	"github.com/photolock/photolock/internal/objectstore"
	"github.com/photolock/photolock/internal/verifier/models"
	"github.com/photolock/photolock/internal/verifier/registry"
	"github.com/photolock/photolock/internal/verifier/transcode"
)

// Stage names appear in diagnostics and in the registry row.
const (
	StageReceived         = "Received"
	StageMetadataResolved = "MetadataResolved"
	StageKeyResolved      = "KeyResolved"
	StageEnvelopeRebuilt  = "EnvelopeRebuilt"
	StageVerified         = "Verified"
	StageRejected         = "Rejected"
	StageArchived         = "Archived"
	StageDiscarded        = "Discarded"
)

// Result is what the HTTP layer renders. Errors accumulates every stage
// diagnostic; the handler always answers 200 with this payload.
type Result struct {
	Stage      string `json:"stage"`
	Verified   bool   `json:"verified"`
	Identity   string `json:"identity,omitempty"`
	ImageHash  string `json:"image_hash"`
	ArchiveKey string `json:"archive_key,omitempty"`
	Errors     string `json:"errors,omitempty"`
}

// Notifier is the messaging capability; *notify.Notifier implements it.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

// toMP4 is indirected so pipeline tests do not shell out to ffmpeg.
var toMP4 = transcode.ToMP4

type Service struct {
	store    objectstore.Store
	cameras  registry.CameraRepository
	records  registry.RecordRepository
	contacts registry.ContactRepository
	notifier Notifier
	log      logging.Logger
}

func NewService(
	store objectstore.Store,
	cameras registry.CameraRepository,
	records registry.RecordRepository,
	contacts registry.ContactRepository,
	notifier Notifier,
	log logging.Logger,
) *Service {
	return &Service{
		store:    store,
		cameras:  cameras,
		records:  records,
		contacts: contacts,
		notifier: notifier,
		log:      log.With("module", "verify"),
	}
}

// ProcessObject fetches an uploaded object and runs the pipeline. The
// record comes from the object metadata when present, else from the
// content-hash registry.
func (s *Service) ProcessObject(ctx context.Context, bucket, key string) Result {
	obj, err := s.store.Get(ctx, bucket, key)
	if err != nil {
		return Result{Stage: StageReceived, Errors: fmt.Sprintf("fetch %s/%s: %v", bucket, key, err)}
	}
	return s.Process(ctx, obj.Body, obj.Metadata, extOf(key))
}

// Process runs the stage machine over raw media bytes. Every stage failure
// is caught and accumulated; the pipeline never panics a request away.
func (s *Service) Process(ctx context.Context, media []byte, metadata map[string]string, ext string) Result {
	var diags []string

	hash := sha256.Sum256(media)
	res := Result{Stage: StageReceived, ImageHash: hex.EncodeToString(hash[:])}

	rec, err := s.resolveRecord(ctx, res.ImageHash, metadata)
	if err != nil {
		diags = append(diags, fmt.Sprintf("resolve record: %v", err))
		res.Errors = strings.Join(diags, "; ")
		return res
	}
	res.Stage = StageMetadataResolved
	res.Identity = rec.Fingerprint

	pub, err := s.resolveKey(ctx, rec.CameraNumber)
	if err != nil {
		if errors.Is(err, common.ErrUnknownCamera) {
			// Not a system failure: captures from unenrolled cameras are a
			// legitimate negative outcome.
			diags = append(diags, fmt.Sprintf("camera %q is not enrolled", rec.CameraNumber))
		} else {
			diags = append(diags, fmt.Sprintf("resolve key: %v", err))
			s.log.Error(ctx, "key resolution failed",
				"camera", rec.CameraNumber, "error", err.Error())
		}
		res.Stage = StageRejected
		s.record(ctx, &res, rec, &diags)
		s.notifyOutcome(ctx, &res, rec, &diags)
		res.Errors = strings.Join(diags, "; ")
		return res
	}
	res.Stage = StageKeyResolved

	env := envelope.Build(rec.Fields(), media)
	res.Stage = StageEnvelopeRebuilt

	sig, err := rec.SignatureBytes()
	if err != nil {
		diags = append(diags, err.Error())
		res.Stage = StageRejected
	} else if err := envelope.Verify(env, sig, pub); err != nil {
		if errors.Is(err, common.ErrInvalidSignature) {
			// A forged or altered capture. Legitimate negative outcome.
			diags = append(diags, "signature does not match envelope")
		} else {
			diags = append(diags, fmt.Sprintf("verify: %v", err))
			s.log.Error(ctx, "verification failed outside the signature check", "error", err.Error())
		}
		res.Stage = StageRejected
	} else {
		res.Stage = StageVerified
		res.Verified = true
	}

	if res.Verified {
		s.archive(ctx, &res, rec, media, ext, &diags)
	} else {
		res.Stage = StageDiscarded
	}

	s.record(ctx, &res, rec, &diags)
	s.notifyOutcome(ctx, &res, rec, &diags)

	res.Errors = strings.Join(diags, "; ")
	return res
}

// resolveRecord prefers side-channel object metadata; objects uploaded by
// the queue drainer always carry it. The registry covers re-verification of
// bare bytes whose record was stored earlier.
func (s *Service) resolveRecord(ctx context.Context, imageHash string, metadata map[string]string) (envelope.Record, error) {
	if metadata["signature"] != "" {
		return envelope.RecordFromObjectMetadata(metadata), nil
	}

	row, err := s.records.GetByHash(ctx, imageHash)
	if err != nil {
		return envelope.Record{}, err
	}

	return envelope.Record{
		Fingerprint:  row.Fingerprint,
		CameraNumber: row.CameraNumber,
		Date:         row.MediaDate,
		Time:         row.MediaTime,
		Location:     row.Location,
		Signature:    row.Signature,
	}, nil
}

func (s *Service) resolveKey(ctx context.Context, cameraNumber string) (pub *rsa.PublicKey, err error) {
	pemBytes, err := s.cameras.GetPublicKey(ctx, cameraNumber)
	if err != nil {
		return nil, err
	}
	return envelope.ParsePublicKeyPEM(pemBytes)
}

// archive copies the verified media into the operator's bucket under the
// next free sequence number and adds a playback mp4 for recordings. The
// transcode is an extra; its failure never undoes the archived original.
func (s *Service) archive(ctx context.Context, res *Result, rec envelope.Record, media []byte, ext string, diags *[]string) {
	bucket := ArchiveBucket(rec.Fingerprint)

	n, err := s.store.NextSequence(ctx, bucket)
	if err != nil {
		*diags = append(*diags, fmt.Sprintf("archive sequence: %v", err))
		return
	}

	key := fmt.Sprintf("%d.%s", n, ext)
	if err := s.store.Put(ctx, bucket, key, media, rec.ObjectMetadata()); err != nil {
		*diags = append(*diags, fmt.Sprintf("archive put: %v", err))
		return
	}
	res.Stage = StageArchived
	res.ArchiveKey = bucket + "/" + key

	if ext == "avi" {
		mp4, err := toMP4(ctx, media)
		if err != nil {
			*diags = append(*diags, fmt.Sprintf("transcode: %v", err))
			s.log.Warn(ctx, "playback transcode failed", "key", res.ArchiveKey)
			return
		}
		mp4Key := fmt.Sprintf("%d.mp4", n)
		if err := s.store.Put(ctx, bucket, mp4Key, mp4, nil); err != nil {
			*diags = append(*diags, fmt.Sprintf("playback put: %v", err))
		}
	}
}

func (s *Service) record(ctx context.Context, res *Result, rec envelope.Record, diags *[]string) {
	row := &models.VerificationRecord{
		ImageHash:    res.ImageHash,
		Fingerprint:  rec.Fingerprint,
		CameraNumber: rec.CameraNumber,
		MediaDate:    rec.Date,
		MediaTime:    rec.Time,
		Location:     rec.Location,
		Signature:    rec.Signature,
		Verified:     res.Verified,
		ArchiveKey:   res.ArchiveKey,
	}
	if err := s.records.Upsert(ctx, row); err != nil {
		*diags = append(*diags, fmt.Sprintf("record upsert: %v", err))
	}
}

// notifyOutcome is best effort by design: a dead gateway must not change
// the verification outcome.
func (s *Service) notifyOutcome(ctx context.Context, res *Result, rec envelope.Record, diags *[]string) {
	if s.notifier == nil || rec.Fingerprint == "" {
		return
	}

	phone, err := s.contacts.GetPhone(ctx, rec.Fingerprint)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			*diags = append(*diags, fmt.Sprintf("contact lookup: %v", err))
		}
		return
	}

	body := fmt.Sprintf("Media from camera %s taken %s %s failed verification.", rec.CameraNumber, rec.Date, rec.Time)
	if res.Verified {
		body = fmt.Sprintf("Media from camera %s taken %s %s was verified and archived as %s.", rec.CameraNumber, rec.Date, rec.Time, res.ArchiveKey)
	}

	if err := s.notifier.Send(ctx, phone, body); err != nil {
		s.log.Warn(ctx, "notification failed", "identity", rec.Fingerprint, "error", err.Error())
	}
}

// ArchiveBucket derives the operator's archive bucket name. Bucket names
// must be lowercase and cannot contain spaces.
func ArchiveBucket(identity string) string {
	return strings.ToLower(strings.ReplaceAll(identity, " ", ""))
}

// extOf returns the media extension of an object key, defaulting to png.
func extOf(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 && i < len(key)-1 {
		return key[i+1:]
	}
	return "png"
}
