// Package persistence adapts the order domain's Repository interface to
// Postgres via pgx.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/qhato/taxorders/internal/order/domain"
	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/errors"
)

type PostgresOrderRepository struct {
	db *database.DB
}

func NewPostgresOrderRepository(db *database.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	jurisdictions, err := json.Marshal(order.Jurisdictions)
	if err != nil {
		return errors.InternalWrap(err, "marshal jurisdictions")
	}

	query := `
		INSERT INTO orders (
			author_user_id, latitude, longitude, subtotal, "timestamp", reporting_code,
			jurisdictions, composite_tax_rate, tax_amount, total_amount,
			state_rate, county_rate, city_rate, special_rates
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at`

	row := r.db.QueryRow(ctx, query,
		order.AuthorUserID, order.Latitude, order.Longitude, order.Subtotal, order.Timestamp,
		order.ReportingCode, jurisdictions, order.CompositeTaxRate, order.TaxAmount, order.TotalAmount,
		order.StateRate, order.CountyRate, order.CityRate, order.SpecialRates,
	)
	if err := row.Scan(&order.ID, &order.CreatedAt); err != nil {
		return errors.InternalWrap(err, "insert order")
	}
	return nil
}

func (r *PostgresOrderRepository) BulkInsert(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(orders))
	for i, o := range orders {
		jurisdictions, err := json.Marshal(o.Jurisdictions)
		if err != nil {
			return errors.InternalWrap(err, "marshal jurisdictions")
		}
		rows[i] = []interface{}{
			o.AuthorUserID, o.Latitude, o.Longitude, o.Subtotal, o.Timestamp, o.ReportingCode,
			jurisdictions, o.CompositeTaxRate, o.TaxAmount, o.TotalAmount,
			o.StateRate, o.CountyRate, o.CityRate, o.SpecialRates,
		}
	}

	_, err := r.db.Pool().CopyFrom(
		ctx,
		pgx.Identifier{"orders"},
		[]string{
			"author_user_id", "latitude", "longitude", "subtotal", "timestamp", "reporting_code",
			"jurisdictions", "composite_tax_rate", "tax_amount", "total_amount",
			"state_rate", "county_rate", "city_rate", "special_rates",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return errors.InternalWrap(err, "bulk insert orders")
	}
	return nil
}

func (r *PostgresOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT o.id, o.author_user_id, o.latitude, o.longitude, o.subtotal, o."timestamp",
		       o.reporting_code, o.jurisdictions, o.composite_tax_rate, o.tax_amount, o.total_amount,
		       o.state_rate, o.county_rate, o.city_rate, o.special_rates, o.created_at,
		       COALESCE(u.login, '')
		FROM orders o
		LEFT JOIN users u ON u.id = o.author_user_id
		WHERE o.id = $1`

	row := r.db.QueryRow(ctx, query, id)
	order, err := scanOrder(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("order")
		}
		return nil, errors.InternalWrap(err, "find order by id")
	}
	return order, nil
}

var sortColumns = map[domain.SortMode]string{
	domain.SortNewest:       `o."timestamp" DESC`,
	domain.SortOldest:       `o."timestamp" ASC`,
	domain.SortSubtotalAsc:  `o.subtotal ASC`,
	domain.SortSubtotalDesc: `o.subtotal DESC`,
	domain.SortTotalAsc:     `o.total_amount ASC`,
	domain.SortTotalDesc:    `o.total_amount DESC`,
}

func (r *PostgresOrderRepository) List(ctx context.Context, filter domain.Filter) ([]domain.Order, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ReportingCode != "" {
		where += " AND o.reporting_code = " + arg(filter.ReportingCode)
	}
	if filter.From != nil {
		where += ` AND o."timestamp" >= ` + arg(*filter.From)
	}
	if filter.To != nil {
		where += ` AND o."timestamp" <= ` + arg(*filter.To)
	}
	if filter.AuthorUserID != nil {
		where += " AND o.author_user_id = " + arg(*filter.AuthorUserID)
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM orders o " + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.InternalWrap(err, "count orders")
	}

	orderBy, ok := sortColumns[filter.Sort]
	if !ok {
		orderBy = sortColumns[domain.SortNewest]
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT o.id, o.author_user_id, o.latitude, o.longitude, o.subtotal, o."timestamp",
		       o.reporting_code, o.jurisdictions, o.composite_tax_rate, o.tax_amount, o.total_amount,
		       o.state_rate, o.county_rate, o.city_rate, o.special_rates, o.created_at,
		       COALESCE(u.login, '')
		FROM orders o
		LEFT JOIN users u ON u.id = o.author_user_id
		` + where + `
		ORDER BY ` + orderBy + `
		LIMIT ` + arg(pageSize) + ` OFFSET ` + arg(offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.InternalWrap(err, "list orders")
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		order, err := scanOrderRows(rows)
		if err != nil {
			return nil, 0, errors.InternalWrap(err, "scan order row")
		}
		out = append(out, *order)
	}
	return out, total, rows.Err()
}

func (r *PostgresOrderRepository) Stats(ctx context.Context, from, to *time.Time) (domain.StatsSummary, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total_amount - tax_amount), 0), COALESCE(SUM(tax_amount), 0)
		FROM orders
		WHERE ($1::timestamptz IS NULL OR "timestamp" >= $1)
		  AND ($2::timestamptz IS NULL OR "timestamp" <= $2)`

	var count int64
	var revenue, tax decimal.Decimal
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&count, &revenue, &tax); err != nil {
		return domain.StatsSummary{}, errors.InternalWrap(err, "order stats")
	}

	var avgPct decimal.Decimal
	if !revenue.IsZero() {
		avgPct = tax.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return domain.StatsSummary{
		OrderCount:        count,
		TotalRevenue:      revenue.StringFixed(2),
		TotalTax:          tax.StringFixed(2),
		AverageTaxPercent: avgPct.StringFixed(2),
	}, nil
}

func (r *PostgresOrderRepository) StatsDaily(ctx context.Context, from, to *time.Time) ([]domain.DailyStat, error) {
	query := `
		SELECT date_trunc('day', "timestamp") AS day, COUNT(*),
		       COALESCE(SUM(total_amount - tax_amount), 0), COALESCE(SUM(tax_amount), 0)
		FROM orders
		WHERE ($1::timestamptz IS NULL OR "timestamp" >= $1)
		  AND ($2::timestamptz IS NULL OR "timestamp" <= $2)
		GROUP BY day
		ORDER BY day`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, errors.InternalWrap(err, "order stats daily")
	}
	defer rows.Close()

	var out []domain.DailyStat
	for rows.Next() {
		var day time.Time
		var count int64
		var revenue, tax decimal.Decimal
		if err := rows.Scan(&day, &count, &revenue, &tax); err != nil {
			return nil, errors.InternalWrap(err, "scan daily stat")
		}
		out = append(out, domain.DailyStat{
			Date:         day.Format("2006.01.02"),
			OrderCount:   count,
			TotalRevenue: revenue.StringFixed(2),
			TotalTax:     tax.StringFixed(2),
		})
	}
	return out, rows.Err()
}

func (r *PostgresOrderRepository) StreamCoordinates(ctx context.Context, afterID uuid.UUID, limit int) ([]domain.Order, error) {
	query := `
		SELECT id, latitude, longitude
		FROM orders
		WHERE id > $1
		ORDER BY id
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, errors.InternalWrap(err, "stream order coordinates")
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Latitude, &o.Longitude); err != nil {
			return nil, errors.InternalWrap(err, "scan coordinate row")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	return scanOrderRows(row)
}

func scanOrderRows(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var jurisdictionsRaw []byte
	if err := row.Scan(
		&o.ID, &o.AuthorUserID, &o.Latitude, &o.Longitude, &o.Subtotal, &o.Timestamp,
		&o.ReportingCode, &jurisdictionsRaw, &o.CompositeTaxRate, &o.TaxAmount, &o.TotalAmount,
		&o.StateRate, &o.CountyRate, &o.CityRate, &o.SpecialRates, &o.CreatedAt, &o.AuthorLogin,
	); err != nil {
		return nil, err
	}
	if len(jurisdictionsRaw) > 0 {
		if err := json.Unmarshal(jurisdictionsRaw, &o.Jurisdictions); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
