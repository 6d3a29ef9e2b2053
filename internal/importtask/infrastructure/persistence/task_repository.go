// Package persistence adapts the importtask domain's Repository interface
// to Postgres via pgx.
package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qhato/taxorders/internal/importtask/domain"
	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/errors"
)

type PostgresTaskRepository struct {
	db *database.DB
}

func NewPostgresTaskRepository(db *database.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO file_tasks (user_id, file_path, total_rows, successful_rows, failed_rows, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`

	row := r.db.QueryRow(ctx, query, task.UserID, task.FilePath, task.TotalRows,
		task.SuccessfulRows, task.FailedRows, task.Status)
	if err := row.Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return errors.InternalWrap(err, "insert file_task")
	}
	return nil
}

func (r *PostgresTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, user_id, file_path, total_rows, successful_rows, failed_rows, status, created_at, updated_at
		FROM file_tasks WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	task, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("task")
		}
		return nil, errors.InternalWrap(err, "find task by id")
	}
	return task, nil
}

func (r *PostgresTaskRepository) ListInProgress(ctx context.Context) ([]domain.Task, error) {
	return r.list(ctx, `WHERE status = 'in_progress'`)
}

func (r *PostgresTaskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	return r.list(ctx, "")
}

func (r *PostgresTaskRepository) list(ctx context.Context, where string) ([]domain.Task, error) {
	query := `
		SELECT id, user_id, file_path, total_rows, successful_rows, failed_rows, status, created_at, updated_at
		FROM file_tasks ` + where + ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.InternalWrap(err, "list file_tasks")
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, errors.InternalWrap(err, "scan file_task row")
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateProgress writes only successful_rows, failed_rows, status and
// updated_at — never the task's static fields. A missing task is swallowed:
// a worker surviving task deletion is a no-op.
func (r *PostgresTaskRepository) UpdateProgress(ctx context.Context, id uuid.UUID, successful, failed int, status domain.Status) error {
	query := `
		UPDATE file_tasks
		SET successful_rows = $2, failed_rows = $3, status = $4, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Pool().Exec(ctx, query, id, successful, failed, status)
	if err != nil {
		return errors.InternalWrap(err, "update file_task progress")
	}
	_ = tag
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	return scanTaskRows(row)
}

func scanTaskRows(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.FilePath, &t.TotalRows, &t.SuccessfulRows,
		&t.FailedRows, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
