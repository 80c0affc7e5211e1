package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	started  bool
	waited   bool
	startErr error
	waitErr  error
	stdin    *bytes.Buffer
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (p *fakeProcess) Start() error { p.started = true; return p.startErr }
func (p *fakeProcess) Wait() error  { p.waited = true; return p.waitErr }
func (p *fakeProcess) StdinPipe() (io.WriteCloser, error) {
	p.stdin = &bytes.Buffer{}
	return nopWriteCloser{p.stdin}, nil
}

func TestRecorderStartStop(t *testing.T) {
	origNew, origRun := newProcess, runProcess
	defer func() { newProcess, runProcess = origNew, origRun }()

	proc := &fakeProcess{}
	var recordArgs, trimArgs []string
	newProcess = func(ctx context.Context, name string, args ...string) process {
		recordArgs = append([]string{name}, args...)
		return proc
	}
	runProcess = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		trimArgs = append([]string{name}, args...)
		return nil, nil
	}

	dir := t.TempDir()
	rawPath := filepath.Join(dir, "0raw.avi")
	require.NoError(t, os.WriteFile(rawPath, []byte("raw"), 0o600))

	r := NewRecorder("/dev/video0", "default")
	require.NoError(t, r.Start(context.Background(), rawPath))
	assert.True(t, proc.started)
	assert.Contains(t, recordArgs, "/dev/video0")
	assert.Contains(t, recordArgs, rawPath)

	finalPath := filepath.Join(dir, "0.avi")
	require.NoError(t, r.Stop(context.Background(), finalPath))

	assert.Equal(t, "q\n", proc.stdin.String())
	assert.True(t, proc.waited)
	assert.Contains(t, trimArgs, "-ss")
	assert.Contains(t, trimArgs, finalPath)

	_, err := os.Stat(rawPath)
	assert.True(t, os.IsNotExist(err), "raw scratch file must be removed")
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := NewRecorder("/dev/video0", "default")
	assert.Error(t, r.Stop(context.Background(), "x.avi"))
}

func TestRecorderTrimFailureKeepsRaw(t *testing.T) {
	origNew, origRun := newProcess, runProcess
	defer func() { newProcess, runProcess = origNew, origRun }()

	proc := &fakeProcess{}
	newProcess = func(ctx context.Context, name string, args ...string) process { return proc }
	runProcess = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("codec error"), errors.New("exit status 1")
	}

	dir := t.TempDir()
	rawPath := filepath.Join(dir, "0raw.avi")
	require.NoError(t, os.WriteFile(rawPath, []byte("raw"), 0o600))

	r := NewRecorder("/dev/video0", "default")
	require.NoError(t, r.Start(context.Background(), rawPath))

	err := r.Stop(context.Background(), filepath.Join(dir, "0.avi"))
	assert.ErrorContains(t, err, "trim recording")

	_, statErr := os.Stat(rawPath)
	assert.NoError(t, statErr, "raw file survives a failed trim for manual recovery")
}
