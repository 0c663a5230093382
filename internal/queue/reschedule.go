package queue

import (
	"context"
	"fmt"
	"time"
)

// NextSlot returns original + k*interval for the smallest k >= 0 that lands
// strictly after now.
func NextSlot(original time.Time, interval time.Duration, now time.Time) (time.Time, error) {
	if interval <= 0 {
		return time.Time{}, ErrInvalidInterval
	}
	if original.After(now) {
		return original, nil
	}
	elapsed := now.Sub(original)
	steps := elapsed/interval + 1
	return original.Add(steps * interval), nil
}

// Reschedule moves job to its next slot after the store clock and writes the
// new time onto the same row. It returns ErrJobNotFound when the row is gone.
func (s *Store) Reschedule(ctx context.Context, interval time.Duration, job *Job) (time.Time, error) {
	if job == nil {
		return time.Time{}, fmt.Errorf("reschedule: %w", ErrJobNotFound)
	}
	now := s.now()
	next, err := NextSlot(job.ScheduledAt, interval, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("reschedule job %d: %w", job.ID, err)
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET scheduled_at = ?, updated_at = ? WHERE id = ?`,
		toMillis(next), formatTimestamp(now), job.ID,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("reschedule job %d: %w", job.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("reschedule job %d: %w", job.ID, err)
	}
	if affected == 0 {
		return time.Time{}, fmt.Errorf("reschedule job %d: %w", job.ID, ErrJobNotFound)
	}
	job.ScheduledAt = next
	return next, nil
}
