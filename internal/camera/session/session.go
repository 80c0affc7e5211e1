// Package session implements the capture session state machine: biometric
// authentication gates capture, a recording lock serializes state changes,
// and every successful capture spawns an independent worker that signs and
// ships the media without blocking the interactive path.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/photolock/photolock/internal/camera/biometric"
	"github.com/photolock/photolock/internal/camera/capture"
	"github.com/photolock/photolock/internal/camera/gps"
	"github.com/photolock/photolock/internal/camera/queue"
	"github.com/photolock/photolock/internal/camera/signer"
	"github.com/photolock/photolock/internal/common"
	"github.com/photolock/photolock/internal/envelope"
	"github.com/photolock/photolock/internal/logging"
)

// Sink is the upload capability the workers use for the immediate path.
// *uploader.Uploader implements it.
type Sink interface {
	Online() bool
	UploadNow(ctx context.Context, kind queue.Kind, media []byte, rec envelope.Record) error
}

// GPS yields a position/time fix (or the sentinel) for a capture.
type GPS interface {
	Read(ctx context.Context) gps.Fix
}

// Recorder drives the external video recorder process.
type Recorder interface {
	Start(ctx context.Context, rawPath string) error
	Stop(ctx context.Context, finalPath string) error
}

// Config carries session policy.
type Config struct {
	// CameraNumber is the stable device identifier bound into every
	// envelope; it maps 1:1 to the key registered with the verifier.
	CameraNumber string
	// MaxCaptures is how many captures one authentication unlocks before
	// the session forces a re-scan. The reference policy is 3.
	MaxCaptures int
}

// Status is a read-only snapshot for the control surface.
type Status struct {
	Authenticated bool
	Identity      string
	VideoMode     bool
	Recording     bool
	MediaTaken    int
	GPSFix        bool
	Online        bool
}

type Controller struct {
	cfg     Config
	scanner biometric.Scanner
	roster  biometric.Roster
	still   capture.StillCamera
	rec     Recorder
	gps     GPS
	signer  signer.Signer
	queue   *queue.Queue
	sink    Sink
	log     logging.Logger

	// authMu/authCond serialize authentication: the monitor sleeps while an
	// identity is set and wakes when it clears.
	authMu   sync.Mutex
	authCond *sync.Cond
	identity string

	// mu is the recording lock guarding mode and capture state.
	mu         sync.Mutex
	videoMode  bool
	capturing  bool
	midVideo   bool
	mediaTaken int
	videoEntry queue.Entry
	// videoIdentity is the operator the running recording belongs to, fixed
	// at start so a mid-recording sign-out cannot detach the capture.
	videoIdentity string

	gpsOK atomic.Bool

	// workers tracks in-flight sign/ship goroutines so shutdown (and tests)
	// can wait for them.
	workers sync.WaitGroup
}

func NewController(
	cfg Config,
	scanner biometric.Scanner,
	roster biometric.Roster,
	still capture.StillCamera,
	rec Recorder,
	g GPS,
	s signer.Signer,
	q *queue.Queue,
	sink Sink,
	log logging.Logger,
) *Controller {
	if cfg.MaxCaptures <= 0 {
		cfg.MaxCaptures = 3
	}

	c := &Controller{
		cfg:     cfg,
		scanner: scanner,
		roster:  roster,
		still:   still,
		rec:     rec,
		gps:     g,
		signer:  s,
		queue:   q,
		sink:    sink,
		log:     log.With("module", "session"),
	}
	c.authCond = sync.NewCond(&c.authMu)
	return c
}

// RunAuthMonitor blocks on the scanner whenever no identity is set. Only
// one authentication attempt runs at a time; the loop sleeps on the
// condition variable while a session is active and wakes when it clears.
func (c *Controller) RunAuthMonitor(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.authCond.Broadcast()
	}()

	for {
		c.authMu.Lock()
		for c.identity != "" && ctx.Err() == nil {
			c.authCond.Wait()
		}
		c.authMu.Unlock()

		if ctx.Err() != nil {
			return
		}

		slot, err := c.scanner.WaitForMatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn(ctx, "fingerprint read failed", "error", err.Error())
			continue
		}

		name, ok := c.roster.Identity(slot)
		if !ok {
			c.log.Warn(ctx, "unenrolled fingerprint slot", "slot", slot)
			continue
		}

		c.authMu.Lock()
		c.identity = name
		c.authMu.Unlock()
		c.log.Info(ctx, "operator authenticated", "identity", name)
	}
}

// Identity returns the current operator name, empty when unauthenticated.
func (c *Controller) Identity() string {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	return c.identity
}

// SignOut clears the session and wakes the authentication monitor.
func (c *Controller) SignOut() {
	c.authMu.Lock()
	c.identity = ""
	c.authMu.Unlock()

	c.mu.Lock()
	c.mediaTaken = 0
	c.mu.Unlock()

	c.authCond.Broadcast()
}

// SetGPSStatus is called by the fix watcher; the value only feeds Status.
func (c *Controller) SetGPSStatus(ok bool) {
	c.gpsOK.Store(ok)
}

// Status returns a point-in-time snapshot for the UI layer.
func (c *Controller) Status() Status {
	identity := c.Identity()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Authenticated: identity != "",
		Identity:      identity,
		VideoMode:     c.videoMode,
		Recording:     c.capturing || c.midVideo,
		MediaTaken:    c.mediaTaken,
		GPSFix:        c.gpsOK.Load(),
		Online:        c.sink.Online(),
	}
}

// ToggleMode flips between image and video mode; refused mid-capture.
func (c *Controller) ToggleMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing || c.midVideo {
		return common.ErrCaptureInProgress
	}
	c.videoMode = !c.videoMode
	return nil
}

// CaptureStill takes one image and hands it to a pipeline worker. The
// capture itself is synchronous under the recording lock; signing and
// shipping are not.
func (c *Controller) CaptureStill(ctx context.Context) error {
	identity := c.Identity()
	if identity == "" {
		return common.ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.capturing || c.midVideo {
		c.mu.Unlock()
		return common.ErrCaptureInProgress
	}
	if c.videoMode {
		c.mu.Unlock()
		return common.ErrWrongMode
	}
	c.capturing = true
	c.mu.Unlock()

	media, err := c.still.CaptureStill(ctx)

	c.mu.Lock()
	c.capturing = false
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("capture still: %w", err)
	}

	c.noteCapture(ctx)

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		c.processImage(ctx, identity, media)
	}()
	return nil
}

// StartVideo launches the external recorder into the pending video
// directory under a freshly reserved base number.
func (c *Controller) StartVideo(ctx context.Context) error {
	identity := c.Identity()
	if identity == "" {
		return common.ErrNotAuthenticated
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing || c.midVideo {
		return common.ErrCaptureInProgress
	}
	if !c.videoMode {
		return common.ErrWrongMode
	}

	base, err := c.queue.NextBase(queue.KindVideo)
	if err != nil {
		return fmt.Errorf("reserve video base: %w", err)
	}
	entry := queue.Entry{Kind: queue.KindVideo, Base: base}

	rawPath := filepath.Join(c.queue.Dir(queue.KindVideo), fmt.Sprintf("%draw.avi", base))
	if err := c.rec.Start(ctx, rawPath); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}

	c.videoEntry = entry
	c.videoIdentity = identity
	c.midVideo = true
	return nil
}

// StopVideo signals the recorder, waits for the trimmed final file and
// hands the entry to a pipeline worker. The video half already sits in the
// pending directory; the worker adds the signed sidecar, and the drainer
// uploads the pair.
func (c *Controller) StopVideo(ctx context.Context) error {
	c.mu.Lock()
	if !c.midVideo {
		c.mu.Unlock()
		return common.ErrNotRecording
	}
	entry := c.videoEntry
	identity := c.videoIdentity
	c.mu.Unlock()

	err := c.rec.Stop(ctx, c.queue.MediaPath(entry))

	c.mu.Lock()
	c.midVideo = false
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("stop recorder: %w", err)
	}

	c.noteCapture(ctx)

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		c.processVideo(ctx, identity, entry)
	}()
	return nil
}

// Wait blocks until every spawned pipeline worker finished.
func (c *Controller) Wait() {
	c.workers.Wait()
}

// noteCapture bumps the session counter and forces re-authentication once
// the per-authentication budget is spent.
func (c *Controller) noteCapture(ctx context.Context) {
	c.mu.Lock()
	c.mediaTaken++
	expired := c.mediaTaken > c.cfg.MaxCaptures
	c.mu.Unlock()

	if expired {
		c.log.Info(ctx, "capture budget spent, forcing re-authentication")
		c.SignOut()
	}
}

// sign runs the envelope→digest→sign chain for one capture.
func (c *Controller) sign(ctx context.Context, identity string, media []byte) (envelope.Record, error) {
	fix := c.gps.Read(ctx)

	fields := envelope.Fields{
		Fingerprint:  identity,
		CameraNumber: c.cfg.CameraNumber,
		Date:         fix.Date,
		Time:         fix.Time,
		Location:     fix.Location(),
	}

	env := envelope.Build(fields, media)
	digest := envelope.Digest(env)

	sig, err := c.signer.Sign(ctx, digest[:])
	if err != nil {
		return envelope.Record{}, err
	}

	return envelope.NewRecord(fields, sig), nil
}

func (c *Controller) processImage(ctx context.Context, identity string, media []byte) {
	rec, err := c.sign(ctx, identity, media)
	if err != nil {
		// An unsigned capture is never queued or uploaded.
		c.log.Error(ctx, "aborting capture, signing failed", "error", err.Error())
		return
	}

	if c.sink.Online() {
		if err := c.sink.UploadNow(ctx, queue.KindImage, media, rec); err == nil {
			c.log.Info(ctx, "capture uploaded", "identity", identity)
			return
		}
		c.log.Warn(ctx, "immediate upload failed, queueing capture")
	}

	if _, err := c.queue.Enqueue(queue.KindImage, media, rec); err != nil {
		c.log.Error(ctx, "enqueue failed, capture lost", "error", err.Error())
		return
	}
	c.log.Info(ctx, "capture queued for upload", "identity", identity)
}

func (c *Controller) processVideo(ctx context.Context, identity string, entry queue.Entry) {
	media, err := os.ReadFile(c.queue.MediaPath(entry))
	if err != nil {
		c.log.Error(ctx, "reading recording failed", "error", err.Error())
		return
	}

	rec, err := c.sign(ctx, identity, media)
	if err != nil {
		c.log.Error(ctx, "aborting capture, signing failed", "error", err.Error())
		return
	}

	// Videos always go through the queue; the drainer ships them.
	if err := c.queue.EnqueueMediaFile(entry, rec); err != nil {
		c.log.Error(ctx, "enqueue failed", "base", entry.Base, "error", err.Error())
		return
	}
	c.log.Info(ctx, "recording queued for upload", "identity", identity, "base", entry.Base)
}
