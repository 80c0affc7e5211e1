// Package capture wraps the external media sources: the still camera that
// yields encoded PNG bytes and the ffmpeg-backed video recorder. Frame
// acquisition and transcoding semantics live outside this system; only the
// process control and the trim pass are ours.
package capture

import (
	"context"
	"io"
	"os/exec"
)

// StillCamera produces one encoded PNG frame per call. Implementations talk
// to the actual capture hardware.
type StillCamera interface {
	CaptureStill(ctx context.Context) ([]byte, error)
}

// process is the slice of exec.Cmd the recorder drives. Tests substitute it.
type process interface {
	Start() error
	Wait() error
	StdinPipe() (io.WriteCloser, error)
}

// newProcess is indirected for tests.
var newProcess = func(ctx context.Context, name string, args ...string) process {
	return exec.CommandContext(ctx, name, args...)
}

// runProcess runs a command to completion, returning combined output.
var runProcess = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
