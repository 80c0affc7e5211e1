package capture

import (
	"context"
	"fmt"
	"io"
	"os"
)

// recording FFmpeg parameters for the reference device (v4l2 camera with
// ALSA audio). The lead-in trim removes the segment recorded while the
// operator was still reaching for the button.
const leadInSeconds = "3"

// Recorder starts and stops one external ffmpeg recording at a time. Start
// writes to a raw scratch file; Stop signals ffmpeg, waits for it to exit,
// stream-copies everything past the lead-in into the final file and removes
// the scratch. The caller (the session controller) guarantees Start/Stop
// pairing.
type Recorder struct {
	VideoDevice string
	AudioDevice string

	proc    process
	stdin   io.WriteCloser
	rawPath string
}

func NewRecorder(videoDevice, audioDevice string) *Recorder {
	return &Recorder{VideoDevice: videoDevice, AudioDevice: audioDevice}
}

// Start launches the recorder writing to rawPath.
func (r *Recorder) Start(ctx context.Context, rawPath string) error {
	proc := newProcess(ctx, "ffmpeg",
		"-framerate", "30",
		"-video_size", "1920x1080",
		"-i", r.VideoDevice,
		"-f", "alsa", "-i", r.AudioDevice,
		"-c:v", "h264_v4l2m2m",
		"-pix_fmt", "yuv420p",
		"-b:v", "4M",
		"-bufsize", "4M",
		"-c:a", "aac",
		"-b:a", "128k",
		"-threads", "4",
		rawPath,
	)

	stdin, err := proc.StdinPipe()
	if err != nil {
		return fmt.Errorf("recorder stdin: %w", err)
	}

	if err := proc.Start(); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}

	r.proc = proc
	r.stdin = stdin
	r.rawPath = rawPath
	return nil
}

// Stop asks ffmpeg to finish, waits for the file to be finalized, trims the
// lead-in into finalPath and deletes the raw scratch file.
func (r *Recorder) Stop(ctx context.Context, finalPath string) error {
	if r.proc == nil {
		return fmt.Errorf("recorder not started")
	}

	if _, err := io.WriteString(r.stdin, "q\n"); err != nil {
		return fmt.Errorf("signal recorder: %w", err)
	}
	if err := r.proc.Wait(); err != nil {
		return fmt.Errorf("recorder exit: %w", err)
	}

	out, err := runProcess(ctx, "ffmpeg",
		"-i", r.rawPath,
		"-ss", leadInSeconds,
		"-c:v", "copy",
		"-c:a", "copy",
		"-threads", "4",
		finalPath,
	)
	if err != nil {
		return fmt.Errorf("trim recording: %w (%s)", err, out)
	}

	if err := os.Remove(r.rawPath); err != nil {
		return fmt.Errorf("remove raw recording: %w", err)
	}

	r.proc = nil
	r.stdin = nil
	r.rawPath = ""
	return nil
}
