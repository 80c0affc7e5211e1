package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FFmpegStill grabs a single frame from a V4L2 device with ffmpeg and
// returns it PNG encoded. The frame goes through a temp file because ffmpeg
// interleaves diagnostics with anything it writes to stdout.
type FFmpegStill struct {
	Device string
}

func (c *FFmpegStill) CaptureStill(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "still")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "frame.png")
	out, err := runProcess(ctx, "ffmpeg",
		"-y",
		"-f", "v4l2",
		"-i", c.Device,
		"-frames:v", "1",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg still capture: %w: %s", err, out)
	}

	return os.ReadFile(path)
}
