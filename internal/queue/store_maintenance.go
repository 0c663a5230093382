package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Stats returns job counts split into due and deferred, overall and per type.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.handle().QueryContext(ensureContext(ctx),
		`SELECT task_type,
                COUNT(1),
                COALESCE(SUM(CASE WHEN scheduled_at <= ? THEN 1 ELSE 0 END), 0)
         FROM jobs GROUP BY task_type ORDER BY task_type`,
		toMillis(s.now()),
	)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var entry TypeStats
		if err := rows.Scan(&entry.TaskType, &entry.Total, &entry.Due); err != nil {
			return Stats{}, err
		}
		entry.Deferred = entry.Total - entry.Due
		stats.Total += entry.Total
		stats.Due += entry.Due
		stats.Deferred += entry.Deferred
		stats.ByType = append(stats.ByType, entry)
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	db := s.handle()
	if db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	if err := db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	var integrity string
	if err := db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = integrity == "ok"

	if err := db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM jobs").Scan(&health.TotalJobs); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count jobs: %w", err)
	}
	return health, nil
}
