package rsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// renameWithRetry retries os.Rename with exponential backoff while the
// failure looks transient.
func renameWithRetry(ctx context.Context, oldPath, newPath string) error {
	const maxRetries = 5
	base := 100 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := os.Rename(oldPath, newPath)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return fmt.Errorf("rename failed permanently: %w", err)
		}
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base * (1 << (attempt - 1))):
		}
	}

	return fmt.Errorf("rename failed after %d retries: %w", maxRetries, lastErr)
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT)
}
