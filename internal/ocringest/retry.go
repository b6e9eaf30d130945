package ocringest

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookglebookgle/ai-core/internal/apperr"
)

// withRetry generalizes the teacher's gcpclient.withRetry[T any] pattern
// (fixed 500ms/1s/2s backoff for Vertex AI 429s) to this pipeline's own
// policy: retryAttempts attempts, backoff retryDelay*(attempt+1), where a
// Kind-Unavailable error is always retried and any other apperr.Error is
// retried only if apperr.IsRetryable reports true for it.
func withRetry[T any](ctx context.Context, log *slog.Logger, operation string, attempts int, delay time.Duration, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				log.Info("ocr retry succeeded", "operation", operation, "attempt", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !apperr.IsRetryable(err) {
			return zero, err
		}

		if attempt == attempts-1 {
			break
		}

		backoff := delay * time.Duration(attempt+1)
		log.Warn("ocr operation failed, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"backoff_ms", backoff.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return zero, apperr.Wrap(apperr.Cancelled, ctx.Err())
		case <-time.After(backoff):
		}
	}

	log.Error("ocr retries exhausted", "operation", operation, "attempts", attempts)
	return zero, lastErr
}
