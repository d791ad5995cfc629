package index

import (
	"context"
	"fmt"
)

// Sink receives batches of sections.
type Sink interface {
	// Upload indexes a batch and reports one result per section. A non-nil
	// error means the whole batch failed.
	Upload(ctx context.Context, sections []Section) ([]UploadResult, error)
}

// UploadResult is the per-document outcome of an upload.
type UploadResult struct {
	Key        string
	Succeeded  bool
	StatusCode int
	Error      string
}

// CountSucceeded returns how many results succeeded.
func CountSucceeded(results []UploadResult) int {
	n := 0
	for _, r := range results {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
