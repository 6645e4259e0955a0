// Package synth produces a video artifact from a local image and audio
// pair. Strategies are consulted in order; the first one whose
// capability is present wins, so the full inference path is never
// silently skipped in favor of the fallback.
package synth

import (
	"context"
	"log/slog"
	"os"
)

// Strategy is one way of producing the video artifact.
type Strategy interface {
	Name() string
	// Available reports whether the strategy's external capability is
	// installed, without invoking it.
	Available() bool
	Render(ctx context.Context, imagePath, audioPath, outputPath string) error
}

type Engine struct {
	modelDir   string
	strategies []Strategy
	logger     *slog.Logger
}

// NewEngine builds an engine over an ordered strategy list. The first
// strategy is treated as the primary; selecting any later one is logged
// as degraded operation.
func NewEngine(modelDir string, strategies []Strategy, logger *slog.Logger) *Engine {
	return &Engine{modelDir: modelDir, strategies: strategies, logger: logger}
}

// ModelsPresent reports whether the model asset directory exists.
func (e *Engine) ModelsPresent() bool {
	info, err := os.Stat(e.modelDir)
	return err == nil && info.IsDir()
}

// Capabilities reports per-strategy availability, for startup logging
// and the health endpoint.
func (e *Engine) Capabilities() map[string]bool {
	caps := make(map[string]bool, len(e.strategies))
	for _, s := range e.strategies {
		caps[s.Name()] = s.Available()
	}
	return caps
}

// Synthesize renders outputPath from the image and audio pair. The model
// asset precondition is checked before any strategy is consulted; no
// subprocess is spawned when the models are absent.
func (e *Engine) Synthesize(ctx context.Context, imagePath, audioPath, outputPath string) error {
	if !e.ModelsPresent() {
		return &Error{Kind: KindModelsMissing, Detail: "MuseTalk models not found - run model download first"}
	}

	for i, s := range e.strategies {
		if !s.Available() {
			e.logger.Debug("synthesis strategy unavailable", slog.String("strategy", s.Name()))
			continue
		}

		if i > 0 {
			e.logger.Warn("primary synthesis capability unavailable, degrading",
				slog.String("strategy", s.Name()),
			)
		}

		return s.Render(ctx, imagePath, audioPath, outputPath)
	}

	return &Error{Kind: KindCapabilityUnavailable, Detail: "No synthesis capability available"}
}
