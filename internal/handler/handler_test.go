package handler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmartly/avatar-worker/internal/fetch"
	"github.com/flowsmartly/avatar-worker/internal/job"
	"github.com/flowsmartly/avatar-worker/internal/publish"
	"github.com/flowsmartly/avatar-worker/internal/synth"
	"github.com/flowsmartly/avatar-worker/internal/workspace"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// trackingWorkspaces records every acquired workspace so tests can
// verify the cleanup invariant on all exit paths.
type trackingWorkspaces struct {
	*workspace.Manager
	acquired []string
}

func (t *trackingWorkspaces) Acquire() (*workspace.Workspace, error) {
	ws, err := t.Manager.Acquire()
	if ws != nil {
		t.acquired = append(t.acquired, ws.Root)
	}
	return ws, err
}

type fakeFetcher struct {
	failURL string
	failErr error
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, dest string) error {
	f.fetched = append(f.fetched, url)
	if url == f.failURL {
		return f.failErr
	}
	return os.WriteFile(dest, []byte("media"), 0o644)
}

type fakeSynth struct {
	err   error
	calls int
}

func (s *fakeSynth) Synthesize(ctx context.Context, imagePath, audioPath, outputPath string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, []byte("video"), 0o644)
}

type fakePublisher struct {
	err    error
	panics bool
	calls  int
	keys   []string
}

func (p *fakePublisher) Publish(ctx context.Context, localPath, objectKey string) (string, error) {
	p.calls++
	p.keys = append(p.keys, objectKey)
	if p.panics {
		panic("storage client exploded")
	}
	if p.err != nil {
		return "", p.err
	}
	return publish.PublicURL("https://storage.runpod.io", "flowsmartly-avatars", objectKey), nil
}

type fixture struct {
	handler    *Handler
	workspaces *trackingWorkspaces
	fetcher    *fakeFetcher
	engine     *fakeSynth
	publisher  *fakePublisher
	root       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	m, err := workspace.NewManager(root, testLogger())
	require.NoError(t, err)

	fx := &fixture{
		workspaces: &trackingWorkspaces{Manager: m},
		fetcher:    &fakeFetcher{},
		engine:     &fakeSynth{},
		publisher:  &fakePublisher{},
		root:       root,
	}
	fx.handler = New(fx.workspaces, fx.fetcher, fx.engine, fx.publisher, testLogger())
	return fx
}

func (fx *fixture) assertAllWorkspacesReleased(t *testing.T) {
	t.Helper()
	for _, dir := range fx.workspaces.acquired {
		assert.NoDirExists(t, dir)
	}
}

func validJob() *job.Job {
	return &job.Job{
		ID: "job-1",
		Input: job.Input{
			ImageURL: "https://cdn.example.com/face.png",
			AudioURL: "https://cdn.example.com/speech.wav",
		},
	}
}

func TestRunMissingImageURL(t *testing.T) {
	fx := newFixture(t)

	j := validJob()
	j.Input.ImageURL = ""

	res := fx.handler.Run(context.Background(), j)

	assert.Equal(t, &job.Result{Error: "input_image_url is required"}, res)
	assert.Empty(t, fx.fetcher.fetched, "validation must precede any network activity")
	assert.Zero(t, fx.engine.calls)
	assert.Zero(t, fx.publisher.calls)
	assert.Empty(t, fx.workspaces.acquired, "no workspace may be created for an invalid job")
}

func TestRunMissingAudioURL(t *testing.T) {
	fx := newFixture(t)

	j := validJob()
	j.Input.AudioURL = ""

	res := fx.handler.Run(context.Background(), j)

	assert.Equal(t, &job.Result{Error: "input_audio_url is required"}, res)
	assert.Empty(t, fx.fetcher.fetched, "both field checks happen before any fetch")
	assert.Empty(t, fx.workspaces.acquired)
}

func TestRunImageFetchTimeout(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.failURL = "https://cdn.example.com/face.png"
	fx.fetcher.failErr = &fetch.Error{Kind: fetch.KindTimeout, Detail: "Download timeout after 60 seconds"}

	res := fx.handler.Run(context.Background(), validJob())

	assert.Equal(t, "Failed to download image: Download timeout after 60 seconds", res.Error)
	assert.Zero(t, fx.engine.calls, "failed fetch must short-circuit synthesis")
	fx.assertAllWorkspacesReleased(t)
}

func TestRunAudioFetchFailure(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.failURL = "https://cdn.example.com/speech.wav"
	fx.fetcher.failErr = &fetch.Error{Kind: fetch.KindTransport, Detail: "Download failed: unexpected status 500"}

	res := fx.handler.Run(context.Background(), validJob())

	assert.Equal(t, "Failed to download audio: Download failed: unexpected status 500", res.Error)
	assert.Len(t, fx.fetcher.fetched, 2, "image fetch runs before the audio fetch fails")
	fx.assertAllWorkspacesReleased(t)
}

func TestRunModelsMissing(t *testing.T) {
	fx := newFixture(t)
	fx.engine.err = &synth.Error{
		Kind:   synth.KindModelsMissing,
		Detail: "MuseTalk models not found - run model download first",
	}

	res := fx.handler.Run(context.Background(), validJob())

	assert.Equal(t, "MuseTalk models not found - run model download first", res.Error)
	assert.Zero(t, fx.publisher.calls)
	fx.assertAllWorkspacesReleased(t)
}

func TestRunPublishFailureStillReleasesWorkspace(t *testing.T) {
	fx := newFixture(t)
	fx.publisher.err = &publish.Error{Kind: publish.KindUploadFailed, Detail: "S3 upload failed: connection reset"}

	res := fx.handler.Run(context.Background(), validJob())

	assert.Equal(t, "S3 upload failed: connection reset", res.Error)
	require.Len(t, fx.workspaces.acquired, 1)
	fx.assertAllWorkspacesReleased(t)
}

func TestRunPanicBecomesHandlerError(t *testing.T) {
	fx := newFixture(t)
	fx.publisher.panics = true

	res := fx.handler.Run(context.Background(), validJob())

	require.NotNil(t, res)
	assert.True(t, strings.HasPrefix(res.Error, "Handler error: "), res.Error)
	assert.Contains(t, res.Error, "storage client exploded")
	fx.assertAllWorkspacesReleased(t)
}

func TestRunSuccess(t *testing.T) {
	fx := newFixture(t)

	res := fx.handler.Run(context.Background(), validJob())

	require.True(t, res.Succeeded(), res.Error)
	assert.Equal(t, &job.Result{
		OutputVideoURL: "https://storage.runpod.io/flowsmartly-avatars/musetalk/job-1.mp4",
		Status:         job.StatusCompleted,
		Model:          job.ModelName,
		JobID:          "job-1",
	}, res)

	assert.Equal(t, []string{
		"https://cdn.example.com/face.png",
		"https://cdn.example.com/speech.wav",
	}, fx.fetcher.fetched, "stages run in strict order")
	assert.Equal(t, []string{"musetalk/job-1.mp4"}, fx.publisher.keys)
	fx.assertAllWorkspacesReleased(t)

	// The workspace root itself survives for the next job
	assert.DirExists(t, fx.root)
}

func TestRunUsesUnknownForMissingJobID(t *testing.T) {
	fx := newFixture(t)

	j := validJob()
	j.ID = ""

	res := fx.handler.Run(context.Background(), j)

	require.True(t, res.Succeeded(), res.Error)
	assert.Equal(t, "unknown", res.JobID)
	assert.Equal(t, []string{"musetalk/unknown.mp4"}, fx.publisher.keys)
}
