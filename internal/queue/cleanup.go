package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rowq/internal/logging"
)

// DefaultRetention is the age past which processed rows are swept.
const DefaultRetention = time.Hour

// Cleanup deletes processed rows whose updated_at is older than olderThan and
// returns how many were removed. A non-positive olderThan means
// DefaultRetention. Unprocessed rows are never deleted, however old.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = DefaultRetention
	}
	cutoff := formatTime(s.now().Add(-olderThan))
	res, err := s.execWithRetry(ctx, s.q.cleanup, true, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup processed rows: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup processed rows: rows affected: %w", err)
	}
	s.logger.Debug("cleanup finished",
		logging.Int64("removed", removed),
		logging.Duration("older_than", olderThan),
	)
	return removed, nil
}

// ParseRetention accepts a count of seconds ("3600") or a Go duration
// ("1h", "90m"). An empty string yields DefaultRetention.
func ParseRetention(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return DefaultRetention, nil
	}
	if secs, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("retention %q must be positive", value)
		}
		return Seconds(secs), nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("retention %q: expected seconds or a duration like 1h: %w", value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("retention %q must be positive", value)
	}
	return d, nil
}

// Seconds converts a count of seconds to a Duration.
func Seconds(secs int64) time.Duration {
	return time.Duration(secs) * time.Second
}
