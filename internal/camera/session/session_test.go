package session

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/photolock/photolock/internal/camera/biometric"
	"github.com/photolock/photolock/internal/camera/gps"
	"github.com/photolock/photolock/internal/camera/queue"
	"github.com/photolock/photolock/internal/common"
	"github.com/photolock/photolock/internal/envelope"
	"github.com/photolock/photolock/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeSink struct {
	mu      sync.Mutex
	online  bool
	err     error
	uploads []envelope.Record
}

func (f *fakeSink) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeSink) UploadNow(ctx context.Context, kind queue.Kind, media []byte, rec envelope.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.uploads = append(f.uploads, rec)
	return nil
}

type fakeGPS struct{ fix gps.Fix }

func (f *fakeGPS) Read(ctx context.Context) gps.Fix { return f.fix }

type fakeStill struct {
	media []byte
	err   error
}

func (f *fakeStill) CaptureStill(ctx context.Context) ([]byte, error) { return f.media, f.err }

type fakeRecorder struct {
	started  bool
	stopped  bool
	startErr error
	stopErr  error
	queue    *queue.Queue
	media    []byte
}

func (f *fakeRecorder) Start(ctx context.Context, rawPath string) error {
	f.started = true
	return f.startErr
}

func (f *fakeRecorder) Stop(ctx context.Context, finalPath string) error {
	f.stopped = true
	if f.stopErr != nil {
		return f.stopErr
	}
	return os.WriteFile(finalPath, f.media, 0o600)
}

type fakeSigner struct {
	key *rsa.PrivateKey
	err error
}

func (f *fakeSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return rsa.SignPKCS1v15(rand.Reader, f.key, crypto.SHA256, digest)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

type rig struct {
	c       *Controller
	sink    *fakeSink
	rec     *fakeRecorder
	scanner *biometric.ChanScanner
	key     *rsa.PrivateKey
	q       *queue.Queue
}

var testFix = gps.Fix{Latitude: 42.33, Longitude: -71.10, Time: "14:03:22", Date: "2024-05-01", Valid: true}

func newRig(t *testing.T) *rig {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	q, err := queue.New(t.TempDir())
	require.NoError(t, err)

	sink := &fakeSink{}
	rec := &fakeRecorder{queue: q, media: []byte("avi-bytes")}
	scanner := biometric.NewChanScanner()

	c := NewController(
		Config{CameraNumber: "2", MaxCaptures: 3},
		scanner,
		biometric.Roster{0: "Dani Kasti", 1: "John Dale"},
		&fakeStill{media: []byte("png-bytes")},
		rec,
		&fakeGPS{fix: testFix},
		&fakeSigner{key: key},
		q,
		sink,
		testLogger(),
	)

	return &rig{c: c, sink: sink, rec: rec, scanner: scanner, key: key, q: q}
}

func (r *rig) authenticate(t *testing.T, ctx context.Context, slot int) {
	t.Helper()
	go r.c.RunAuthMonitor(ctx)
	select {
	case r.scanner.Matches <- slot:
	case <-time.After(time.Second):
		t.Fatal("auth monitor never asked the scanner")
	}
	require.Eventually(t, func() bool { return r.c.Identity() != "" }, time.Second, time.Millisecond)
}

// -------- tests --------

func TestCaptureRefusedWithoutIdentity(t *testing.T) {
	r := newRig(t)

	err := r.c.CaptureStill(context.Background())
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)

	err = r.c.StartVideo(context.Background())
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestAuthenticateAndCaptureUploadsWhenOnline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.sink.online = true
	r.authenticate(t, ctx, 0)

	require.NoError(t, r.c.CaptureStill(ctx))
	r.c.Wait()

	require.Len(t, r.sink.uploads, 1)
	rec := r.sink.uploads[0]
	assert.Equal(t, "Dani Kasti", rec.Fingerprint)
	assert.Equal(t, "2", rec.CameraNumber)
	assert.Equal(t, "42.3300, -71.1000", rec.Location)

	// the signature verifies against the rebuilt envelope
	sig, err := rec.SignatureBytes()
	require.NoError(t, err)
	env := envelope.Build(rec.Fields(), []byte("png-bytes"))
	assert.NoError(t, envelope.Verify(env, sig, &r.key.PublicKey))

	// nothing queued
	pairs, _, err := r.q.List(queue.KindImage)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestCaptureQueuesWhenOffline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.authenticate(t, ctx, 0)

	require.NoError(t, r.c.CaptureStill(ctx))
	r.c.Wait()

	pairs, corrupt, err := r.q.List(queue.KindImage)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Empty(t, corrupt)

	media, rec, err := r.q.Load(pairs[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), media)
	assert.Equal(t, "Dani Kasti", rec.Fingerprint)
}

func TestImmediateUploadFailureFallsBackToQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.sink.online = true
	r.sink.err = errors.New("put failed")
	r.authenticate(t, ctx, 0)

	require.NoError(t, r.c.CaptureStill(ctx))
	r.c.Wait()

	pairs, _, err := r.q.List(queue.KindImage)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestSigningFailureAbortsCapture(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.c.signer = &fakeSigner{err: common.ErrSigningUnavailable}
	r.sink.online = true
	r.authenticate(t, ctx, 0)

	require.NoError(t, r.c.CaptureStill(ctx))
	r.c.Wait()

	assert.Empty(t, r.sink.uploads, "unsigned capture must not be uploaded")
	pairs, _, err := r.q.List(queue.KindImage)
	require.NoError(t, err)
	assert.Empty(t, pairs, "unsigned capture must not be queued")
}

func TestVideoLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.authenticate(t, ctx, 0)

	require.NoError(t, r.c.ToggleMode())

	require.NoError(t, r.c.StartVideo(ctx))
	assert.True(t, r.rec.started)
	assert.True(t, r.c.Status().Recording)

	// no concurrent capture while recording
	assert.ErrorIs(t, r.c.StartVideo(ctx), common.ErrCaptureInProgress)
	assert.ErrorIs(t, r.c.ToggleMode(), common.ErrCaptureInProgress)

	require.NoError(t, r.c.StopVideo(ctx))
	r.c.Wait()

	pairs, corrupt, err := r.q.List(queue.KindVideo)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Empty(t, corrupt)

	media, rec, err := r.q.Load(pairs[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("avi-bytes"), media)

	sig, err := rec.SignatureBytes()
	require.NoError(t, err)
	assert.NoError(t, envelope.Verify(envelope.Build(rec.Fields(), media), sig, &r.key.PublicKey))
}

func TestSignOutMidRecordingKeepsOperator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.authenticate(t, ctx, 0)

	require.NoError(t, r.c.ToggleMode())
	require.NoError(t, r.c.StartVideo(ctx))

	// the recording stays attributed to whoever started it
	r.c.SignOut()
	require.NoError(t, r.c.StopVideo(ctx))
	r.c.Wait()

	pairs, _, err := r.q.List(queue.KindVideo)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	_, rec, err := r.q.Load(pairs[0])
	require.NoError(t, err)
	assert.Equal(t, "Dani Kasti", rec.Fingerprint)
}

func TestStopWithoutStart(t *testing.T) {
	r := newRig(t)
	assert.ErrorIs(t, r.c.StopVideo(context.Background()), common.ErrNotRecording)
}

func TestModeGuards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.authenticate(t, ctx, 0)

	// still capture refused in video mode
	require.NoError(t, r.c.ToggleMode())
	assert.ErrorIs(t, r.c.CaptureStill(ctx), common.ErrWrongMode)

	// video refused in image mode
	require.NoError(t, r.c.ToggleMode())
	assert.ErrorIs(t, r.c.StartVideo(ctx), common.ErrWrongMode)
}

func TestCaptureBudgetForcesReauthentication(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.sink.online = true
	r.authenticate(t, ctx, 0)

	// budget of 3 allows captures until the counter exceeds it
	for i := 0; i < 4; i++ {
		require.NoError(t, r.c.CaptureStill(ctx))
	}
	r.c.Wait()

	assert.Equal(t, "", r.c.Identity(), "session must reset after the budget is spent")
	assert.ErrorIs(t, r.c.CaptureStill(ctx), common.ErrNotAuthenticated)

	// the monitor is awake again; a new scan re-authenticates
	select {
	case r.scanner.Matches <- 1:
	case <-time.After(time.Second):
		t.Fatal("auth monitor did not resume after sign-out")
	}
	require.Eventually(t, func() bool { return r.c.Identity() == "John Dale" }, time.Second, time.Millisecond)
}

func TestStatusSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	r.sink.online = true
	r.c.SetGPSStatus(true)

	st := r.c.Status()
	assert.False(t, st.Authenticated)
	assert.True(t, st.Online)
	assert.True(t, st.GPSFix)
	assert.False(t, st.VideoMode)

	r.authenticate(t, ctx, 0)
	st = r.c.Status()
	assert.True(t, st.Authenticated)
	assert.Equal(t, "Dani Kasti", st.Identity)
}

func TestUnenrolledSlotIsIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRig(t)
	go r.c.RunAuthMonitor(ctx)

	select {
	case r.scanner.Matches <- 99:
	case <-time.After(time.Second):
		t.Fatal("auth monitor never asked the scanner")
	}

	// monitor keeps scanning; a valid slot still works
	select {
	case r.scanner.Matches <- 0:
	case <-time.After(time.Second):
		t.Fatal("auth monitor stopped after an unenrolled slot")
	}
	require.Eventually(t, func() bool { return r.c.Identity() == "Dani Kasti" }, time.Second, time.Millisecond)
}
