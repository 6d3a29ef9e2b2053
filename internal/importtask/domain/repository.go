package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists Task rows. UpdateProgress MUST be a targeted column
// update (successful_rows, failed_rows, status, updated_at only) — it must
// never overwrite a Task's static fields (file_path, total_rows, user_id).
type Repository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListInProgress(ctx context.Context) ([]Task, error)
	ListAll(ctx context.Context) ([]Task, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, successful, failed int, status Status) error
}
