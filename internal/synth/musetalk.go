package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Inference parameters for the MuseTalk CLI contract.
const (
	museTalkFPS       = 25
	museTalkBatchSize = 8
)

// MuseTalkStrategy drives the full MuseTalk inference entry point as an
// external process. It is the primary strategy and must win whenever the
// inference script is installed.
type MuseTalkStrategy struct {
	python  string
	script  string
	timeout time.Duration
	logger  *slog.Logger
}

func NewMuseTalkStrategy(python, museTalkRoot string, timeout time.Duration, logger *slog.Logger) *MuseTalkStrategy {
	return &MuseTalkStrategy{
		python:  python,
		script:  filepath.Join(museTalkRoot, "scripts", "inference.py"),
		timeout: timeout,
		logger:  logger,
	}
}

func (s *MuseTalkStrategy) Name() string {
	return "musetalk"
}

// Available probes for the inference script explicitly rather than
// letting a failed invocation double as the capability check.
func (s *MuseTalkStrategy) Available() bool {
	info, err := os.Stat(s.script)
	return err == nil && !info.IsDir()
}

func (s *MuseTalkStrategy) Render(ctx context.Context, imagePath, audioPath, outputPath string) error {
	resultDir := filepath.Dir(outputPath)

	args := []string{
		s.script,
		"--source_image", imagePath,
		"--driven_audio", audioPath,
		"--result_dir", resultDir,
		"--fps", fmt.Sprintf("%d", museTalkFPS),
		"--batch_size", fmt.Sprintf("%d", museTalkBatchSize),
	}

	s.logger.Info("running MuseTalk inference",
		slog.String("script", s.script),
		slog.String("result_dir", resultDir),
	)

	res := runCommand(ctx, s.timeout, s.python, args...)

	switch {
	case res.timedOut:
		return &Error{Kind: KindInferenceFailed, Detail: "Video generation timeout (>5 minutes)"}
	case res.startErr != nil:
		return &Error{Kind: KindInferenceFailed, Detail: fmt.Sprintf("MuseTalk inference failed: %v", res.startErr)}
	case res.exitCode != 0:
		return &Error{Kind: KindInferenceFailed, Detail: fmt.Sprintf("MuseTalk inference failed: %s", res.diagnostic())}
	}

	produced, err := locateVideo(resultDir)
	if err != nil {
		return err
	}

	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return &Error{Kind: KindNoOutputProduced, Detail: fmt.Sprintf("No output video generated: %v", err)}
		}
	}

	s.logger.Info("MuseTalk video generated", slog.String("output", outputPath))
	return nil
}

// locateVideo finds the single video file the inference run left in the
// result directory.
func locateVideo(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		// Pattern metacharacters in dir can make the glob malformed;
		// keep that fault distinguishable from a missing artifact.
		return "", &Error{Kind: KindNoOutputProduced, Detail: fmt.Sprintf("No output video generated: %v", err)}
	}

	if len(matches) == 0 {
		return "", &Error{Kind: KindNoOutputProduced, Detail: "No output video generated"}
	}

	sort.Strings(matches)
	return matches[0], nil
}
