package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("job not found")

const jobColumns = `id, voice_path, background_path, source_language, target_languages,
	status, progress_stage, progress_percent, progress_message,
	error_message, results_json, created_at, updated_at`

// Add enqueues a new dubbing job.
func (s *Store) Add(ctx context.Context, voicePath, backgroundPath, sourceLanguage string, targetLanguages []string) (*Job, error) {
	if len(targetLanguages) == 0 {
		return nil, fmt.Errorf("add job: at least one target language required")
	}
	languages, err := encodeLanguages(targetLanguages)
	if err != nil {
		return nil, fmt.Errorf("add job: encode languages: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (
            voice_path, background_path, source_language, target_languages,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		voicePath,
		nullableString(backgroundPath),
		sourceLanguage,
		languages,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one job.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return job, err
}

// ClaimNextPending atomically moves the oldest pending job to
// processing and returns it. Returns nil when the queue is empty.
func (s *Store) ClaimNextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var claimedID int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			"SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1",
			StatusPending)
		if err := row.Scan(&claimedID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?",
			StatusProcessing, timestamp, claimedID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending job: %w", err)
	}
	return s.GetByID(ctx, claimedID)
}

// UpdateProgress records a progress milestone on a job.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage string, percent float64, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET progress_stage = ?, progress_percent = ?,
            progress_message = ?, updated_at = ? WHERE id = ?`,
		stage, percent, message, timestamp, id)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a job with its per-language results.
func (s *Store) MarkCompleted(ctx context.Context, id int64, resultsJSON string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, results_json = ?, progress_percent = 100,
            error_message = NULL, updated_at = ? WHERE id = ?`,
		StatusCompleted, resultsJSON, timestamp, id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed finalizes a job with an error message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		StatusFailed, message, timestamp, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// FailProcessing marks every in-flight job failed, used on daemon
// shutdown so restarts do not resume half-processed work.
func (s *Store) FailProcessing(ctx context.Context, message string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?",
		StatusFailed, message, timestamp, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("fail processing jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// List returns jobs ordered oldest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + jobColumns + " FROM jobs"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (?" + repeatPlaceholder(len(statuses)-1) + ")"
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Clear removes finished jobs; with all=true it removes everything.
func (s *Store) Clear(ctx context.Context, all bool) (int64, error) {
	query := "DELETE FROM jobs WHERE status IN (?, ?)"
	args := []any{StatusCompleted, StatusFailed}
	if all {
		query = "DELETE FROM jobs"
		args = nil
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Health aggregates job counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job             Job
		backgroundPath  sql.NullString
		progressStage   sql.NullString
		progressMessage sql.NullString
		errorMessage    sql.NullString
		resultsJSON     sql.NullString
		rawLanguages    string
		createdAt       string
		updatedAt       string
	)
	err := row.Scan(
		&job.ID,
		&job.VoicePath,
		&backgroundPath,
		&job.SourceLanguage,
		&rawLanguages,
		&job.Status,
		&progressStage,
		&job.ProgressPercent,
		&progressMessage,
		&errorMessage,
		&resultsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.BackgroundPath = backgroundPath.String
	job.ProgressStage = progressStage.String
	job.ProgressMessage = progressMessage.String
	job.ErrorMessage = errorMessage.String
	job.ResultsJSON = resultsJSON.String
	job.TargetLanguages = decodeLanguages(rawLanguages)
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
