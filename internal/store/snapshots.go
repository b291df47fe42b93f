package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SnapshotRow is one durable graph snapshot.
type SnapshotRow struct {
	ID        int64
	TakenAt   time.Time
	NodeCount int
	EdgeCount int
	Payload   []byte
}

// SaveSnapshot persists a graph export and returns its id.
func (db *DB) SaveSnapshot(payload []byte, nodeCount, edgeCount int, takenAt time.Time) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO snapshots (taken_at, node_count, edge_count, payload)
		VALUES (?, ?, ?, ?)
	`, takenAt.UnixMilli(), nodeCount, edgeCount, payload)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save snapshot id: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the most recent snapshot, or nil if none exist.
func (db *DB) LatestSnapshot() (*SnapshotRow, error) {
	row := db.QueryRow(`
		SELECT id, taken_at, node_count, edge_count, payload
		FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT 1
	`)
	return scanSnapshot(row)
}

// GetSnapshot returns a snapshot by id, or nil if not found.
func (db *DB) GetSnapshot(id int64) (*SnapshotRow, error) {
	row := db.QueryRow(`
		SELECT id, taken_at, node_count, edge_count, payload
		FROM snapshots WHERE id = ?
	`, id)
	return scanSnapshot(row)
}

// ListSnapshots returns the newest snapshots (payload omitted), up to limit.
func (db *DB) ListSnapshots(limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, taken_at, node_count, edge_count
		FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		var takenAt int64
		if err := rows.Scan(&s.ID, &takenAt, &s.NodeCount, &s.EdgeCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.TakenAt = time.UnixMilli(takenAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots deletes all but the newest keep snapshots. Returns the
// number deleted.
func (db *DB) PruneSnapshots(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := db.Exec(`
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots count: %w", err)
	}
	return int(n), nil
}

func scanSnapshot(row *sql.Row) (*SnapshotRow, error) {
	var s SnapshotRow
	var takenAt int64
	err := row.Scan(&s.ID, &takenAt, &s.NodeCount, &s.EdgeCount, &s.Payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	s.TakenAt = time.UnixMilli(takenAt)
	return &s, nil
}
