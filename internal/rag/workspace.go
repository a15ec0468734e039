package rag

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/metrics"
	"github.com/hyperjump/vidlens/pkg/utils"
)

// Workspace is a session's temporary directory. It holds the chunk database,
// the vector snapshot and the keyword index, and is removed on Release.
type Workspace struct {
	dir     string
	logger  *zap.Logger
	metrics *metrics.Metrics
	policy  retrypolicy.RetryPolicy[any]
	remove  func(string) error

	once sync.Once
}

// WorkspaceOptions configures directory removal.
type WorkspaceOptions struct {
	// Root is the parent directory; empty means os.TempDir().
	Root    string
	Retries int
	Backoff time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// remove replaces os.RemoveAll in tests.
	remove func(string) error
}

// NewWorkspace creates a fresh directory named vidlens-rag-{sessionID}-*.
func NewWorkspace(sessionID string, opts WorkspaceOptions) (*Workspace, error) {
	if opts.Root != "" {
		if err := os.MkdirAll(opts.Root, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(opts.Root, "vidlens-rag-"+sessionID+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.remove == nil {
		opts.remove = os.RemoveAll
	}
	logger := utils.OrNop(opts.Logger)
	policy := retrypolicy.NewBuilder[any]().
		WithBackoff(opts.Backoff, opts.Backoff*8).
		WithMaxRetries(opts.Retries).
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			logger.Debug("retrying workspace removal",
				zap.String("dir", dir),
				zap.Int("attempt", e.Attempts()),
				zap.Error(e.LastError()))
		}).
		Build()
	opts.Metrics.SessionOpened()
	return &Workspace{dir: dir, logger: logger, metrics: opts.Metrics, policy: policy, remove: opts.remove}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// Release removes the directory with bounded retries. A directory that cannot be
// removed is logged and counted, never returned. Safe to call more than once.
func (w *Workspace) Release() {
	w.once.Do(func() {
		defer w.metrics.SessionClosed()
		err := failsafe.With[any](w.policy).Run(func() error {
			if err := w.remove(w.dir); err != nil {
				return err
			}
			if _, statErr := os.Stat(w.dir); statErr == nil {
				return fmt.Errorf("workspace still present: %s", w.dir)
			}
			return nil
		})
		if err != nil {
			w.metrics.CleanupFailed()
			w.logger.Warn("could not remove rag workspace", zap.String("dir", w.dir), zap.Error(err))
			return
		}
		w.logger.Debug("rag workspace removed", zap.String("dir", w.dir))
	})
}
