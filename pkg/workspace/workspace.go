// Package workspace owns the temporary files of one deduplication run.
//
// A Workspace is a freshly created directory. Every intermediate artifact
// (segment outputs, the merged video, the remuxed container) is named
// deterministically inside it, and Close removes the whole directory.
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/user/framededup/pkg/ports"
)

// ErrClosed is returned when a path is requested from a closed workspace.
var ErrClosed = errors.New("workspace: closed")

// NewRunID returns a random identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Workspace is a temp-file arena scoped to one run.
type Workspace struct {
	fs    ports.FileSystem
	dir   string
	runID string

	mu     sync.Mutex
	keep   bool
	closed bool
}

// New creates the arena directory inside baseDir. An empty baseDir uses the
// system temp directory.
func New(fs ports.FileSystem, baseDir, runID string) (*Workspace, error) {
	if runID == "" {
		runID = NewRunID()
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}

	dir, err := fs.MkdirTemp(baseDir, ".framededup-"+short+"-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &Workspace{fs: fs, dir: dir, runID: runID}, nil
}

// Dir returns the arena directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// RunID returns the run identifier the arena was created for.
func (w *Workspace) RunID() string {
	return w.runID
}

// SegmentPath returns the temp output path of segment index.
func (w *Workspace) SegmentPath(index int) string {
	return filepath.Join(w.dir, fmt.Sprintf("segment_%04d.mp4", index))
}

// MergedPath returns the path of the merged video-only stream.
func (w *Workspace) MergedPath() string {
	return filepath.Join(w.dir, "merged.mp4")
}

// RemuxedPath returns the path the final container is written to before
// publishing. ext selects the container, so it should match the output's.
func (w *Workspace) RemuxedPath(ext string) string {
	if ext == "" {
		ext = "mp4"
	}
	return filepath.Join(w.dir, "remuxed."+ext)
}

// Keep disables removal on Close, for inspecting intermediates.
func (w *Workspace) Keep(keep bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keep = keep
}

// Close removes the arena and everything in it. It is safe to call more than once.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.keep {
		return nil
	}
	if err := w.fs.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.dir, err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (w *Workspace) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
