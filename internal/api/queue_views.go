package api

import (
	"sort"
	"time"
)

// SortJobsByDue orders jobs by ScheduledAt ascending, breaking ties by ID.
// This is the order the scheduler considers them in.
func SortJobsByDue(jobs []Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	sorted := make([]Job, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := ParseTime(sorted[i].ScheduledAt)
		tj := ParseTime(sorted[j].ScheduledAt)
		if ti.Equal(tj) {
			return sorted[i].ID < sorted[j].ID
		}
		return ti.Before(tj)
	})
	return sorted
}

// ParseTime parses an API timestamp, returning the zero time when value is
// empty or malformed.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
