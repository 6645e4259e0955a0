package synth

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubStrategy struct {
	name      string
	available bool
	err       error
	calls     int
}

func (s *stubStrategy) Name() string    { return s.name }
func (s *stubStrategy) Available() bool { return s.available }

func (s *stubStrategy) Render(ctx context.Context, imagePath, audioPath, outputPath string) error {
	s.calls++
	return s.err
}

func TestSynthesizeModelsMissing(t *testing.T) {
	primary := &stubStrategy{name: "primary", available: true}
	engine := NewEngine(filepath.Join(t.TempDir(), "absent"), []Strategy{primary}, testLogger())

	err := engine.Synthesize(context.Background(), "i.png", "a.wav", "o.mp4")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindModelsMissing, se.Kind)
	assert.Equal(t, "MuseTalk models not found - run model download first", se.Detail)
	assert.Zero(t, primary.calls, "no strategy may run without model assets")
}

func TestSynthesizePrimaryWinsWhenAvailable(t *testing.T) {
	primary := &stubStrategy{name: "primary", available: true}
	fallback := &stubStrategy{name: "fallback", available: true}
	engine := NewEngine(t.TempDir(), []Strategy{primary, fallback}, testLogger())

	require.NoError(t, engine.Synthesize(context.Background(), "i.png", "a.wav", "o.mp4"))

	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestSynthesizeFallsBackWhenPrimaryUnavailable(t *testing.T) {
	primary := &stubStrategy{name: "primary", available: false}
	fallback := &stubStrategy{name: "fallback", available: true}
	engine := NewEngine(t.TempDir(), []Strategy{primary, fallback}, testLogger())

	require.NoError(t, engine.Synthesize(context.Background(), "i.png", "a.wav", "o.mp4"))

	assert.Zero(t, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestSynthesizeNoStrategyAvailable(t *testing.T) {
	engine := NewEngine(t.TempDir(), []Strategy{
		&stubStrategy{name: "primary"},
		&stubStrategy{name: "fallback"},
	}, testLogger())

	err := engine.Synthesize(context.Background(), "i.png", "a.wav", "o.mp4")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindCapabilityUnavailable, se.Kind)
}

func TestCapabilities(t *testing.T) {
	engine := NewEngine(t.TempDir(), []Strategy{
		&stubStrategy{name: "musetalk", available: false},
		&stubStrategy{name: "ffmpeg-mux", available: true},
	}, testLogger())

	assert.Equal(t, map[string]bool{"musetalk": false, "ffmpeg-mux": true}, engine.Capabilities())
}

func TestLocateVideo(t *testing.T) {
	dir := t.TempDir()

	_, err := locateVideo(dir)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindNoOutputProduced, se.Kind)
	assert.Equal(t, "No output video generated", se.Detail)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "result.mp4"), []byte("v"), 0o644))

	found, err := locateVideo(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result.mp4"), found)
}

func TestLocateVideoGlobFaultKeepsDiagnostic(t *testing.T) {
	// An unmatched bracket makes the glob pattern malformed; the detail
	// must carry the fault instead of claiming the artifact was missing.
	dir := filepath.Join(t.TempDir(), "result[dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	_, err := locateVideo(dir)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindNoOutputProduced, se.Kind)
	assert.NotEqual(t, "No output video generated", se.Detail)
	assert.Contains(t, se.Detail, "syntax error in pattern")
}

func TestMuseTalkAvailability(t *testing.T) {
	root := t.TempDir()
	s := NewMuseTalkStrategy("python", root, 0, testLogger())
	assert.False(t, s.Available())

	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", "inference.py"), []byte("#"), 0o644))
	assert.True(t, s.Available())
}
