package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/vk/metasched/internal/ctxlog"
)

// outputLockTimeout is how long to wait for another writer of the same
// output file.
const outputLockTimeout = 5 * time.Second

var ErrOutputLocked = errors.New("output file is locked by another process")

// writeOutput writes path under an exclusive lock held on path + ".lock".
// The content goes to a temporary file first and is renamed into place, so
// readers never see a partial plan.
func writeOutput(ctx context.Context, path string, write func(io.Writer) error) error {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, outputLockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrOutputLocked, path)
		}
		return fmt.Errorf("acquiring output lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrOutputLocked, path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to release output lock.", "path", path, "error", err)
		}
	}()
	logger.Debug("Output lock acquired.", "lock", lock.Path())

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("creating temporary output: %w", err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move plan into place: %w", err)
	}
	return nil
}
