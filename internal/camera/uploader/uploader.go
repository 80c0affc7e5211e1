// Package uploader moves captures to the unverified object-store bucket:
// immediately when connectivity is up, otherwise from the durable pending
// queue via a periodic drain loop. All uploads in the process hold the same
// mutex, so the drainer and the capture-time path never race on the pending
// directories.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/photolock/photolock/internal/camera/queue"
	"github.com/photolock/photolock/internal/common"
	"github.com/photolock/photolock/internal/envelope"
	"github.com/photolock/photolock/internal/logging"
	"github.com/photolock/photolock/internal/objectstore"
)

// Config tunes the background loops. Zero values fall back to the reference
// intervals (10s drain, 5s probe).
type Config struct {
	Bucket        string
	ProbeURL      string
	DrainInterval time.Duration
	ProbeInterval time.Duration
	// MaxAttempts bounds retries of a single put (immediate path only; the
	// drainer is already retried by its next cycle).
	MaxAttempts uint64
}

type Uploader struct {
	store objectstore.Store
	queue *queue.Queue
	log   logging.Logger
	cfg   Config

	httpClient *http.Client

	// mu serializes every scan+upload against the pending directories.
	mu     sync.Mutex
	online atomic.Bool
}

func New(store objectstore.Store, q *queue.Queue, log logging.Logger, cfg Config) *Uploader {
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 10 * time.Second
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 5 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}

	return &Uploader{
		store:      store,
		queue:      q,
		log:        log.With("module", "uploader"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Online reports the last connectivity probe result.
func (u *Uploader) Online() bool {
	return u.online.Load()
}

// WatchConnectivity probes the configured endpoint on a fixed interval and
// flips the online gate. It only gates whether drain attempts anything; a
// failed probe is not an error.
func (u *Uploader) WatchConnectivity(ctx context.Context) {
	u.probe(ctx)

	ticker := time.NewTicker(u.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.probe(ctx)
		}
	}
}

func (u *Uploader) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.cfg.ProbeURL, nil)
	if err != nil {
		u.online.Store(false)
		return
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		u.online.Store(false)
		return
	}
	resp.Body.Close()

	u.online.Store(resp.StatusCode == http.StatusOK)
}

// Run drains the pending queue on a fixed interval until ctx is done.
func (u *Uploader) Run(ctx context.Context) {
	ticker := time.NewTicker(u.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if u.Online() {
				u.Drain(ctx)
			}
		}
	}
}

// Drain makes one full pass over every kind directory and attempts to
// upload each complete pair. Success deletes both halves; failure leaves
// the pair untouched for the next cycle, which makes every cycle an
// independent, idempotent attempt. Corrupt halves are skipped and logged,
// never deleted.
func (u *Uploader) Drain(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, kind := range queue.Kinds {
		pairs, corrupt, err := u.queue.List(kind)
		if err != nil {
			u.log.Error(ctx, "queue scan failed", "kind", string(kind), "error", err.Error())
			continue
		}

		for _, name := range corrupt {
			u.log.Warn(ctx, "skipping corrupt queue entry", "kind", string(kind), "file", name)
		}

		for _, entry := range pairs {
			if err := u.uploadEntry(ctx, entry); err != nil {
				if errors.Is(err, common.ErrCorruptQueueEntry) {
					u.log.Warn(ctx, "skipping corrupt queue entry",
						"kind", string(kind), "base", entry.Base, "error", err.Error())
				} else {
					u.log.Error(ctx, "upload failed, entry left for retry",
						"kind", string(kind), "base", entry.Base, "error", err.Error())
				}
				continue
			}

			if err := u.queue.Remove(entry); err != nil {
				u.log.Error(ctx, "cleanup failed", "base", entry.Base, "error", err.Error())
			} else {
				u.log.Info(ctx, "uploaded pending capture", "kind", string(kind), "base", entry.Base)
			}
		}
	}
}

func (u *Uploader) uploadEntry(ctx context.Context, e queue.Entry) error {
	media, rec, err := u.queue.Load(e)
	if err != nil {
		return err
	}
	return u.put(ctx, e.Kind, media, rec)
}

// UploadNow is the capture-time path: upload without touching the queue.
// It takes the same mutex as Drain so the two never overlap.
func (u *Uploader) UploadNow(ctx context.Context, kind queue.Kind, media []byte, rec envelope.Record) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	backoff := retry.WithMaxRetries(u.cfg.MaxAttempts-1, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := u.put(ctx, kind, media, rec); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (u *Uploader) put(ctx context.Context, kind queue.Kind, media []byte, rec envelope.Record) error {
	key := fmt.Sprintf("incoming/%s.%s", uuid.New(), kind)

	if err := u.store.Put(ctx, u.cfg.Bucket, key, media, rec.ObjectMetadata()); err != nil {
		return fmt.Errorf("put capture: %w", err)
	}

	u.log.Debug(ctx, "capture uploaded", "key", key)
	return nil
}
