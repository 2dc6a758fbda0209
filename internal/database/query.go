package database

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, timestamp, batch_id, action, path, parent_project, size, error_message
	FROM deletions
`

// GetRecentDeletions returns the N most recent outcomes
func (d *DeletionDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetDeletionsByBatch returns every outcome of one delete batch in the
// order it was recorded
func (d *DeletionDB) GetDeletionsByBatch(batchID string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE batch_id = ?
	ORDER BY id ASC
	`, batchID)
}

// GetDeletionsByAction returns outcomes filtered by action
func (d *DeletionDB) GetDeletionsByAction(action string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetDeletionsByPath returns outcomes matching a LIKE pattern
func (d *DeletionDB) GetDeletionsByPath(pathPattern string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pathPattern)
}

// GetLargestDeletions returns the N largest folders actually removed
func (d *DeletionDB) GetLargestDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`
	WHERE action = 'DELETE'
	ORDER BY size DESC
	LIMIT ?
	`, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (d *DeletionDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start.UTC(), end.UTC()).Scan(&total)
	return total, err
}

// GetDeletionCountByAction returns count of outcomes grouped by action
func (d *DeletionDB) GetDeletionCountByAction() (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT action, COUNT(*)
	FROM deletions
	GROUP BY action
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// DeletionStats holds aggregated statistics
type DeletionStats struct {
	TotalDeleted    int            `json:"total_deleted"`
	TotalDryRun     int            `json:"total_dry_run"`
	TotalFailed     int            `json:"total_failed"`
	TotalBatches    int            `json:"total_batches"`
	TotalSpaceFreed int64          `json:"total_space_freed"`
	ByAction        map[string]int `json:"by_action"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
}

// GetDeletionStats returns statistics for the last days days
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(CASE WHEN action NOT IN ('DELETE', 'DRY_RUN') THEN 1 END),
			COUNT(DISTINCT batch_id)
		FROM deletions
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalDeleted, &stats.TotalDryRun, &stats.TotalFailed, &stats.TotalBatches)
	if err != nil {
		return nil, err
	}

	stats.TotalSpaceFreed, err = d.GetTotalSpaceFreed(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetDeletionCountByAction()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than specified days
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM deletions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DeletionDB) queryDeletions(query string, args ...any) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []DeletionRecord{}
	for rows.Next() {
		var r DeletionRecord
		var project, errMsg sql.NullString

		if err := rows.Scan(
			&r.ID, &r.Timestamp, &r.BatchID, &r.Action, &r.Path,
			&project, &r.Size, &errMsg,
		); err != nil {
			return nil, err
		}
		r.ParentProject = project.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}

	return records, rows.Err()
}
