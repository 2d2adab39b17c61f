// Package sink writes log records to the spreadsheet with a bounded retry.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linelogger/internal/domain"
	"linelogger/internal/metrics"
)

const maxAttempts = 3

// SheetSink appends LogRecords to a Sheet, retrying transient failures with
// exponential backoff. Any error from the sheet counts as transient; after the
// final attempt the record is dropped (log-and-drop, no re-queue).
type SheetSink struct {
	sheet  domain.Sheet
	logger *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)

	// attemptTimeout bounds each individual append call.
	attemptTimeout time.Duration
}

func New(sheet domain.Sheet, logger *slog.Logger) *SheetSink {
	return &SheetSink{
		sheet:          sheet,
		logger:         logger,
		sleep:          time.Sleep,
		attemptTimeout: 30 * time.Second,
	}
}

// Append writes one record. Exactly one row per call: the sheet append is
// atomic at the API level, so no partial rows are possible.
func (s *SheetSink) Append(ctx context.Context, rec domain.LogRecord) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second // 1s, 2s
			s.logger.Warn("sheet append retrying",
				"attempt", attempt+1,
				"backoff", backoff,
				"error", lastErr,
			)
			metrics.SinkRetries.Inc()
			s.sleep(backoff)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		err := s.sheet.AppendRow(attemptCtx, rec.Columns())
		cancel()
		if err == nil {
			s.logger.Info("log record appended",
				"user_id", rec.UserID,
				"attempt", attempt+1,
			)
			return nil
		}
		lastErr = err
	}

	metrics.SinkFailures.Inc()
	return domain.Transient(fmt.Errorf("sheet append failed after %d attempts: %w", maxAttempts, lastErr))
}
