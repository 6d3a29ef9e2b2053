package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SortMode is one of the fixed set of sort orders the order list endpoint
// supports.
type SortMode string

const (
	SortNewest       SortMode = "newest"
	SortOldest       SortMode = "oldest"
	SortSubtotalAsc  SortMode = "subtotal_asc"
	SortSubtotalDesc SortMode = "subtotal_desc"
	SortTotalAsc     SortMode = "total_asc"
	SortTotalDesc    SortMode = "total_desc"
)

// Filter scopes a List call.
type Filter struct {
	ReportingCode string
	From          *time.Time
	To            *time.Time
	AuthorUserID  *uuid.UUID
	Sort          SortMode
	Page          int
	PageSize      int
}

// StatsSummary is the aggregate result of Repository.Stats.
type StatsSummary struct {
	OrderCount          int64
	TotalRevenue        string
	TotalTax            string
	AverageTaxPercent   string
}

// DailyStat is one bucket of Repository.StatsDaily.
type DailyStat struct {
	Date         string
	OrderCount   int64
	TotalRevenue string
	TotalTax     string
}

// Repository persists and queries Order records.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, int64, error)
	Stats(ctx context.Context, from, to *time.Time) (StatsSummary, error)
	StatsDaily(ctx context.Context, from, to *time.Time) ([]DailyStat, error)
	StreamCoordinates(ctx context.Context, afterID uuid.UUID, limit int) ([]Order, error)

	// BulkInsert inserts a batch of orders in a single round trip; used by
	// the import executor, which accumulates orders before flushing.
	BulkInsert(ctx context.Context, orders []Order) error
}
