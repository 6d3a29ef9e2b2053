// Package domain holds the Task record: a durable row tracking one CSV
// import run's progress and resume offset.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Task is the durable record of one import run. successful_rows and
// failed_rows together define the resume offset (ProcessedRows); status is
// one-way in_progress -> completed.
type Task struct {
	ID              uuid.UUID
	UserID          *uuid.UUID
	FilePath        string
	TotalRows       int
	SuccessfulRows  int
	FailedRows      int
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProcessedRows is the resume offset: the number of data rows already
// accounted for, successful or failed.
func (t Task) ProcessedRows() int {
	return t.SuccessfulRows + t.FailedRows
}
