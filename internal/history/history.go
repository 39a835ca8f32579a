package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// History logs resolved deployment statuses in SQLite. The memo cache stays
// in-process and volatile; this is an audit trail, not a cache.
type History struct {
	db *sql.DB
}

// NewHistory creates a new status history log.
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is a single-writer store
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS status_checks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project TEXT NOT NULL,
			branch TEXT NOT NULL,
			commit_sha TEXT NOT NULL,
			commit_msg TEXT,
			commit_merged_at TEXT,
			deployed_at TEXT,
			resolved_at TEXT NOT NULL,
			duration_seconds REAL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_project_resolved
		ON status_checks(project, resolved_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordStatus appends a resolved status to the log.
func (h *History) RecordStatus(ctx context.Context, record *StatusRecord) (int64, error) {
	resolvedAt := record.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO status_checks
		(project, branch, commit_sha, commit_msg, commit_merged_at,
		 deployed_at, resolved_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.Project,
		record.Branch,
		record.CommitSHA,
		record.CommitMsg,
		record.CommitMergedAt,
		record.DeployedAt,
		resolvedAt.Format(time.RFC3339),
		record.DurationSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert status record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetLatestStatus returns the most recently resolved status for a project,
// or nil when the project has never resolved successfully.
func (h *History) GetLatestStatus(ctx context.Context, project string) (*StatusRecord, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, project, branch, commit_sha, commit_msg, commit_merged_at,
		       deployed_at, resolved_at, duration_seconds
		FROM status_checks
		WHERE project = ?
		ORDER BY id DESC
		LIMIT 1
	`, project)

	record, err := scanStatusRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest status: %w", err)
	}

	return record, nil
}

// GetStatusHistory returns the most recent resolutions for a project.
func (h *History) GetStatusHistory(ctx context.Context, project string, limit int) ([]StatusRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, project, branch, commit_sha, commit_msg, commit_merged_at,
		       deployed_at, resolved_at, duration_seconds
		FROM status_checks
		WHERE project = ?
		ORDER BY id DESC
		LIMIT ?
	`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var records []StatusRecord
	for rows.Next() {
		record, err := scanStatusRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetAllProjectsStatus returns the latest resolved status for each project.
func (h *History) GetAllProjectsStatus(ctx context.Context) (map[string]*StatusRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT s1.id, s1.project, s1.branch, s1.commit_sha, s1.commit_msg,
		       s1.commit_merged_at, s1.deployed_at, s1.resolved_at, s1.duration_seconds
		FROM status_checks s1
		INNER JOIN (
			SELECT project, MAX(id) as max_id
			FROM status_checks
			GROUP BY project
		) s2
		ON s1.project = s2.project AND s1.id = s2.max_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all projects status: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*StatusRecord)
	for rows.Next() {
		record, err := scanStatusRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status record: %w", err)
		}
		result[record.Project] = record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStatusRecord(s scanner) (*StatusRecord, error) {
	var record StatusRecord
	var resolvedAtStr string

	err := s.Scan(
		&record.ID,
		&record.Project,
		&record.Branch,
		&record.CommitSHA,
		&record.CommitMsg,
		&record.CommitMergedAt,
		&record.DeployedAt,
		&resolvedAtStr,
		&record.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}

	resolvedAt, err := time.Parse(time.RFC3339, resolvedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse resolved_at timestamp: %w", err)
	}
	record.ResolvedAt = resolvedAt

	return &record, nil
}
