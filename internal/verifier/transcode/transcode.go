// Package transcode produces the playback copy of an archived recording.
package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// runCommand is indirected for tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ToMP4 re-encodes an AVI recording to H.264/AAC in an MP4 container.
// The exchange goes through temp files; ffmpeg cannot seek a pipe.
func ToMP4(ctx context.Context, avi []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "transcode")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.avi")
	out := filepath.Join(dir, "out.mp4")

	if err := os.WriteFile(in, avi, 0o600); err != nil {
		return nil, err
	}

	output, err := runCommand(ctx, "ffmpeg",
		"-y",
		"-i", in,
		"-c:v", "libx264",
		"-c:a", "aac",
		out,
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg transcode: %w: %s", err, output)
	}

	return os.ReadFile(out)
}
