// Package handler runs the job-execution pipeline: validate → fetch →
// synthesize → publish. Its contract with the host scheduler is that
// every invocation returns exactly one well-formed result; no failure in
// any stage, anticipated or not, may terminate the worker process.
package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowsmartly/avatar-worker/internal/job"
	"github.com/flowsmartly/avatar-worker/internal/workspace"
)

// ContentFetcher retrieves a remote resource into a local file.
type ContentFetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Synthesizer produces the video artifact from local image and audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, imagePath, audioPath, outputPath string) error
}

// ArtifactPublisher uploads a local artifact and returns its public URL.
type ArtifactPublisher interface {
	Publish(ctx context.Context, localPath, objectKey string) (string, error)
}

// WorkspaceManager allocates and releases per-job scratch directories.
type WorkspaceManager interface {
	Acquire() (*workspace.Workspace, error)
	Release(*workspace.Workspace)
}

type Handler struct {
	workspaces WorkspaceManager
	fetcher    ContentFetcher
	engine     Synthesizer
	publisher  ArtifactPublisher
	logger     *slog.Logger
}

func New(
	workspaces WorkspaceManager,
	fetcher ContentFetcher,
	engine Synthesizer,
	publisher ArtifactPublisher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		workspaces: workspaces,
		fetcher:    fetcher,
		engine:     engine,
		publisher:  publisher,
		logger:     logger,
	}
}

// Run executes one job and always returns a result. The outermost
// recover is the last line of defense: anything not anticipated by a
// stage error kind becomes a "Handler error" result instead of a crash.
func (h *Handler) Run(ctx context.Context, j *job.Job) (res *job.Result) {
	jobID := j.ID
	if jobID == "" {
		jobID = "unknown"
	}

	logger := h.logger.With(slog.String("job_id", jobID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("unexpected handler fault", slog.Any("panic", r))
			res = job.Failed(fmt.Sprintf("Handler error: %v", r))
		}
	}()

	logger.Info("processing job")

	// Both required-field checks happen before any workspace or network
	// activity.
	if j.Input.ImageURL == "" {
		logger.Error("missing input_image_url")
		return job.Failed("input_image_url is required")
	}

	if j.Input.AudioURL == "" {
		logger.Error("missing input_audio_url")
		return job.Failed("input_audio_url is required")
	}

	ws, err := h.workspaces.Acquire()
	if err != nil {
		logger.Error("workspace acquisition failed", slog.String("error", err.Error()))
		return job.Failed(fmt.Sprintf("Handler error: %v", err))
	}
	// Released on every exit path, including the recover above.
	defer h.workspaces.Release(ws)

	imagePath := ws.Path("input.png")
	if err := h.fetcher.Fetch(ctx, j.Input.ImageURL, imagePath); err != nil {
		logger.Error("image fetch failed", slog.String("error", err.Error()))
		return job.Failed(fmt.Sprintf("Failed to download image: %s", err.Error()))
	}

	audioPath := ws.Path("input.wav")
	if err := h.fetcher.Fetch(ctx, j.Input.AudioURL, audioPath); err != nil {
		logger.Error("audio fetch failed", slog.String("error", err.Error()))
		return job.Failed(fmt.Sprintf("Failed to download audio: %s", err.Error()))
	}

	outputPath := ws.Path("output.mp4")
	if err := h.engine.Synthesize(ctx, imagePath, audioPath, outputPath); err != nil {
		logger.Error("synthesis failed", slog.String("error", err.Error()))
		return job.Failed(err.Error())
	}

	objectKey := fmt.Sprintf("musetalk/%s.mp4", jobID)
	videoURL, err := h.publisher.Publish(ctx, outputPath, objectKey)
	if err != nil {
		logger.Error("publish failed", slog.String("error", err.Error()))
		return job.Failed(err.Error())
	}

	logger.Info("job completed", slog.String("output_video_url", videoURL))
	return job.Completed(jobID, videoURL)
}
