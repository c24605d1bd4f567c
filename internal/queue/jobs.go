package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, params_json, status, created_at, processed_at, error_message"

// Enqueue durably records a new job in queued state. The id must be unique
// among all jobs ever inserted; params may be nil. Storage errors other than
// an id collision propagate to the caller unmodified, with no internal retry.
func (s *Store) Enqueue(ctx context.Context, id string, params map[string]any) (*Job, error) {
	ctx = ensureContext(ctx)
	if id == "" {
		return nil, errors.New("enqueue: job id required")
	}
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("enqueue: marshal params: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, params_json, status, created_at) VALUES (?, ?, ?, ?)`,
		id,
		string(paramsJSON),
		StatusQueued,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraint(err) {
			return nil, fmt.Errorf("enqueue job %q: %w", id, ErrDuplicateID)
		}
		return nil, err
	}

	return &Job{
		ID:        id,
		Params:    params,
		Status:    StatusQueued,
		CreatedAt: now,
	}, nil
}

// ClaimNext atomically transitions the oldest queued job to running and
// returns it. A nil job with a nil error means the queue is empty. A claim
// that loses the write-lock race returns ErrContended so callers can apply a
// shorter backoff than the empty-queue poll interval.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)

	// The transaction is immediate (see Open), so the write lock is held
	// before the select runs and no concurrent claimer can read the same row.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, claimError("begin claim tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1`,
		StatusQueued,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, claimError("select oldest queued", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, processed_at = ? WHERE id = ?`,
		StatusRunning,
		now.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return nil, claimError("mark running", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, claimError("commit claim", err)
	}

	job.Status = StatusRunning
	job.ProcessedAt = &now
	return job, nil
}

func claimError(op string, err error) error {
	if isSQLiteBusy(err) {
		return fmt.Errorf("%s: %w", op, ErrContended)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// MarkComplete sets the job to completed. The write applies regardless of the
// job's current status; the returned outcome tells callers what was there.
func (s *Store) MarkComplete(ctx context.Context, id string) (UpdateOutcome, error) {
	return s.applyTerminal(ctx, id, StatusCompleted, "")
}

// MarkFailed sets the job to failed and records the error text. Like
// MarkComplete, the write is unconditional and the outcome is reported.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) (UpdateOutcome, error) {
	return s.applyTerminal(ctx, id, StatusFailed, message)
}

func (s *Store) applyTerminal(ctx context.Context, id string, status Status, message string) (UpdateOutcome, error) {
	ctx = ensureContext(ctx)
	outcome := UpdateNotFound

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var prior Status
		row := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id)
		if err := row.Scan(&prior); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome = UpdateNotFound
				return nil
			}
			return err
		}

		var errorValue any
		if status == StatusFailed {
			errorValue = message
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE jobs SET status = ?, error_message = ? WHERE id = ?`,
			status,
			errorValue,
			id,
		); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		if prior.IsTerminal() {
			outcome = UpdateAlreadyTerminal
		} else {
			outcome = UpdateApplied
		}
		return nil
	})
	if err != nil {
		return UpdateNotFound, fmt.Errorf("mark %s: %w", status, err)
	}
	return outcome, nil
}

// GetByID fetches a job by identifier. A nil job means no row matched.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, rowid`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
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

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		paramsRaw    string
		statusStr    string
		createdRaw   string
		processedRaw sql.NullString
		errorMessage sql.NullString
	)

	if err := scanner.Scan(&id, &paramsRaw, &statusStr, &createdRaw, &processedRaw, &errorMessage); err != nil {
		return nil, err
	}

	params := map[string]any{}
	if paramsRaw != "" {
		if err := json.Unmarshal([]byte(paramsRaw), &params); err != nil {
			return nil, fmt.Errorf("decode params for job %q: %w", id, err)
		}
	}

	job := &Job{
		ID:           id,
		Params:       params,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			job.ProcessedAt = &processed
		}
	}
	return job, nil
}
