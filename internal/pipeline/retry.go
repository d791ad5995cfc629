package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docindex/internal/index"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *index.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := min(time.Duration(1<<uint(attempt))*time.Second, 30*time.Second)
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// uploadWithRetry sends a batch, retrying transient failures up to MaxRetries
// attempts in total. It gives up early when ctx is cancelled.
func uploadWithRetry(ctx context.Context, sink index.Sink, batch []index.Section, backoff func(int) time.Duration, log *slog.Logger) ([]index.UploadResult, error) {
	var results []index.UploadResult
	var lastErr error
	for attempt := range MaxRetries {
		results, lastErr = sink.Upload(ctx, batch)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			break
		}
		wait := backoff(attempt)
		log.Warn("retryable upload error", "attempt", attempt+1, "wait", wait, "error", lastErr)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, lastErr
}
