package monitor

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fleetd/internal/common/fsutil"
)

// UsageStore persists load snapshots to SQLite for after-the-fact analysis.
// The core never reads it on the hot path.
type UsageStore struct {
	db *sql.DB
}

const usageSchema = `
CREATE TABLE IF NOT EXISTS resource_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TIMESTAMP NOT NULL,
	cpu_pct REAL NOT NULL,
	memory_pct REAL NOT NULL,
	memory_available_gb REAL NOT NULL,
	disk_pct REAL NOT NULL,
	disk_free_gb REAL NOT NULL,
	active_instances INTEGER DEFAULT 0,
	instance_processes INTEGER DEFAULT 0,
	instance_memory_mb REAL DEFAULT 0,
	load_level TEXT DEFAULT 'unknown'
);
CREATE INDEX IF NOT EXISTS idx_resource_usage_timestamp ON resource_usage(timestamp);
`

// OpenUsageStore opens (creating if needed) the usage database at path.
func OpenUsageStore(path string) (*UsageStore, error) {
	if err := fsutil.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	if _, err := db.Exec(usageSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init usage schema: %w", err)
	}
	return &UsageStore{db: db}, nil
}

// Close releases the database handle.
func (s *UsageStore) Close() error { return s.db.Close() }

// Log appends one snapshot row.
func (s *UsageStore) Log(snap LoadSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO resource_usage (
			timestamp, cpu_pct, memory_pct, memory_available_gb,
			disk_pct, disk_free_gb, active_instances,
			instance_processes, instance_memory_mb, load_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Timestamp, snap.CPUPct, snap.MemoryPct, snap.MemoryAvailableGB,
		snap.DiskPct, snap.DiskFreeGB, snap.ActiveInstances,
		snap.InstanceProcesses, snap.InstanceMemoryMB, string(snap.Level))
	if err != nil {
		return fmt.Errorf("log usage: %w", err)
	}
	return nil
}

// UsageStats summarizes a recent window of the usage log.
type UsageStats struct {
	Window       time.Duration
	Measurements int
	CPUAvg       float64
	CPUMax       float64
	CPUMin       float64
	MemoryAvg    float64
	MemoryMax    float64
	MemoryMin    float64
	// LevelCounts holds how many samples landed in each load level.
	LevelCounts map[string]int
}

// Stats aggregates the rows recorded within the given window.
func (s *UsageStore) Stats(window time.Duration) (UsageStats, error) {
	cutoff := time.Now().Add(-window)
	stats := UsageStats{Window: window, LevelCounts: make(map[string]int)}

	row := s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(AVG(cpu_pct), 0), COALESCE(MAX(cpu_pct), 0), COALESCE(MIN(cpu_pct), 0),
			COALESCE(AVG(memory_pct), 0), COALESCE(MAX(memory_pct), 0), COALESCE(MIN(memory_pct), 0)
		FROM resource_usage WHERE timestamp >= ?`, cutoff)
	if err := row.Scan(&stats.Measurements,
		&stats.CPUAvg, &stats.CPUMax, &stats.CPUMin,
		&stats.MemoryAvg, &stats.MemoryMax, &stats.MemoryMin); err != nil {
		return stats, fmt.Errorf("usage stats: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT load_level, COUNT(*) FROM resource_usage
		WHERE timestamp >= ? GROUP BY load_level`, cutoff)
	if err != nil {
		return stats, fmt.Errorf("usage level counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return stats, err
		}
		stats.LevelCounts[level] = count
	}
	return stats, rows.Err()
}

// Cleanup deletes rows older than the retention window and reports how many
// were removed.
func (s *UsageStore) Cleanup(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := s.db.Exec(`DELETE FROM resource_usage WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("usage cleanup: %w", err)
	}
	return res.RowsAffected()
}
