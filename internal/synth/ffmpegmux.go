package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// FFmpegMuxStrategy composes the still image and the audio track into a
// plain video container. It keeps the pipeline exercisable on hosts
// without the MuseTalk checkout (build and integration verification) and
// is only ever consulted when the primary strategy is unavailable.
type FFmpegMuxStrategy struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger
}

func NewFFmpegMuxStrategy(bin string, timeout time.Duration, logger *slog.Logger) *FFmpegMuxStrategy {
	return &FFmpegMuxStrategy{bin: bin, timeout: timeout, logger: logger}
}

func (s *FFmpegMuxStrategy) Name() string {
	return "ffmpeg-mux"
}

func (s *FFmpegMuxStrategy) Available() bool {
	_, err := exec.LookPath(s.bin)
	return err == nil
}

func (s *FFmpegMuxStrategy) Render(ctx context.Context, imagePath, audioPath, outputPath string) error {
	args := []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		outputPath,
	}

	s.logger.Info("running ffmpeg still-image mux", slog.String("output", outputPath))

	res := runCommand(ctx, s.timeout, s.bin, args...)

	switch {
	case res.timedOut:
		return &Error{
			Kind:   KindFallbackFailed,
			Detail: fmt.Sprintf("FFmpeg fallback timed out after %d seconds", int(s.timeout.Seconds())),
		}
	case res.startErr != nil:
		return &Error{Kind: KindFallbackFailed, Detail: fmt.Sprintf("FFmpeg fallback failed: %v", res.startErr)}
	case res.exitCode != 0:
		return &Error{Kind: KindFallbackFailed, Detail: fmt.Sprintf("FFmpeg fallback failed: %s", res.diagnostic())}
	}

	return nil
}
