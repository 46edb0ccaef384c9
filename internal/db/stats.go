package db

import (
	"context"
	"fmt"
)

// StorageStats reports storage usage and per-store record counts.
type StorageStats struct {
	UsageBytes   int64            `json:"usage_bytes"`
	QuotaBytes   int64            `json:"quota_bytes"`
	RecordCounts map[string]int64 `json:"record_counts"`
}

// TotalRecords sums RecordCounts.
func (s StorageStats) TotalRecords() int64 {
	var n int64
	for _, c := range s.RecordCounts {
		n += c
	}
	return n
}

// StorageStats measures the database. Quota is zero when the file system
// cannot report free space or the database lives in memory.
func (s *Store) StorageStats(ctx context.Context) (StorageStats, error) {
	conn, err := s.DB()
	if err != nil {
		return StorageStats{}, err
	}

	var pageCount, pageSize int64
	if err := conn.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return StorageStats{}, fmt.Errorf("reading page count: %w", err)
	}
	if err := conn.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return StorageStats{}, fmt.Errorf("reading page size: %w", err)
	}

	stats := StorageStats{
		UsageBytes:   pageCount * pageSize,
		RecordCounts: make(map[string]int64, len(AllStores)),
	}
	if s.opts.Path != MemoryPath {
		if free, ok := diskFree(s.opts.Path); ok {
			stats.QuotaBytes = int64(free) + stats.UsageBytes
		}
	}

	for _, store := range AllStores {
		var n int64
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+store).Scan(&n); err != nil {
			return StorageStats{}, fmt.Errorf("counting %s: %w", store, err)
		}
		stats.RecordCounts[store] = n
	}
	return stats, nil
}
