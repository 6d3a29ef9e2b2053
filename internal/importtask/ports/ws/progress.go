// Package ws exposes the Progress Channel and Tax Preview channel over
// WebSocket connections.
package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qhato/taxorders/internal/importtask/domain"
	"github.com/qhato/taxorders/pkg/logger"
)

// ProgressTickInterval is how often a connected client receives a fresh
// snapshot of every Task row.
const ProgressTickInterval = 300 * time.Millisecond

// taskFrame is the wire shape of one task within a progress frame.
type taskFrame struct {
	ID             string  `json:"id"`
	UserID         *string `json:"user_id"`
	FilePath       string  `json:"file_path"`
	TotalRows      int    `json:"total_rows"`
	SuccessfulRows int    `json:"successful_rows"`
	FailedRows     int    `json:"failed_rows"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type progressFrame struct {
	Tasks []taskFrame `json:"tasks"`
}

// ProgressHandler streams task snapshots to a single already-upgraded
// WebSocket connection until the peer disconnects or ctx is cancelled. A
// peer disconnect stops the loop immediately; no state is persisted.
func ProgressHandler(ctx context.Context, conn *websocket.Conn, repo domain.Repository) {
	defer conn.Close()
	ticker := time.NewTicker(ProgressTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tasks, err := repo.ListAll(ctx)
			if err != nil {
				logger.WithError(err).Warn("progress channel: list tasks failed")
				continue
			}
			frame := progressFrame{Tasks: make([]taskFrame, len(tasks))}
			for i, t := range tasks {
				frame.Tasks[i] = toTaskFrame(t)
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

func toTaskFrame(t domain.Task) taskFrame {
	var userID *string
	if t.UserID != nil {
		s := t.UserID.String()
		userID = &s
	}
	return taskFrame{
		ID:             t.ID.String(),
		UserID:         userID,
		FilePath:       t.FilePath,
		TotalRows:      t.TotalRows,
		SuccessfulRows: t.SuccessfulRows,
		FailedRows:     t.FailedRows,
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.Format(time.RFC3339),
	}
}
