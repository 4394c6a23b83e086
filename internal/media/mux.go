package media

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Muxer combines separately delivered video and audio streams into one
// container.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
}

// FFmpegMuxer shells out to ffmpeg, copying the video stream and
// re-encoding audio to AAC. A missing binary or a non-zero exit both
// surface as errors; the caller downgrades to video-only in either case.
type FFmpegMuxer struct {
	Path    string
	Timeout time.Duration
}

func NewFFmpegMuxer(path string) *FFmpegMuxer {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegMuxer{Path: path, Timeout: 2 * time.Minute}
}

func (m *FFmpegMuxer) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	muxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(muxCtx, m.Path,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy", "-c:a", "aac",
		"-shortest", outPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux: %w (%s)", err, string(out))
	}
	return nil
}
