// Package workspace manages per-job scratch directories. A workspace
// lives for exactly one job and is removed before the job's result is
// returned, whichever way the job ends.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is an isolated scratch directory owned by a single job.
type Workspace struct {
	Root string
}

// Path returns the absolute path for a file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Root, name)
}

type Manager struct {
	root   string
	logger *slog.Logger
}

func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root %s: %w", root, err)
	}

	return &Manager{root: root, logger: logger}, nil
}

// Acquire creates a unique, empty directory for one job.
func (m *Manager) Acquire() (*Workspace, error) {
	dir := filepath.Join(m.root, "musetalk_"+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	m.logger.Debug("workspace acquired", slog.String("dir", dir))
	return &Workspace{Root: dir}, nil
}

// Release removes the workspace and everything in it. Removal is
// best-effort: a cleanup fault is logged but never surfaced, so it can
// never mask the job's real result.
func (m *Manager) Release(w *Workspace) {
	if w == nil {
		return
	}

	if err := os.RemoveAll(w.Root); err != nil {
		m.logger.Warn("workspace cleanup failed",
			slog.String("dir", w.Root),
			slog.String("error", err.Error()),
		)
		return
	}

	m.logger.Debug("workspace released", slog.String("dir", w.Root))
}
