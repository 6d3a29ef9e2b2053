package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qhato/taxorders/internal/order/domain"
	"github.com/qhato/taxorders/migrations"
	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/testutil"
)

// TestOrderRepositoryIntegration_CreateAndFindByID exercises Create and
// FindByID against a real Postgres instance, reachable only with a local
// database server (skipped under -short).
func TestOrderRepositoryIntegration_CreateAndFindByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := testutil.SetupTestDB(t)
	defer testDB.Teardown(t)

	ctx := context.Background()
	db, err := database.New(ctx, database.Config{
		Host: "localhost", Port: 5432, User: "postgres", Password: "postgres",
		Database: testDB.DBName, SSLMode: "disable", MaxConnections: 5, MaxIdleConns: 1,
		MaxLifetime: time.Minute, MaxIdleTime: time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to open pgx pool against test database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	repo := NewPostgresOrderRepository(db)
	order := &domain.Order{
		Latitude:         40.7128,
		Longitude:        -74.0060,
		Subtotal:         decimal.NewFromFloat(100.00),
		Timestamp:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ReportingCode:    "0061",
		Jurisdictions:    map[string][]domain.JurisdictionItem{"state_rate": {{Name: "NY State", Rate: decimal.NewFromFloat(0.04)}}},
		CompositeTaxRate: decimal.NewFromFloat(0.08875),
		TaxAmount:        decimal.NewFromFloat(8.88),
		TotalAmount:      decimal.NewFromFloat(108.88),
		StateRate:        decimal.NewFromFloat(0.04),
		CountyRate:       decimal.NewFromFloat(0.03625),
		CityRate:         decimal.NewFromFloat(0.01125),
		SpecialRates:     decimal.NewFromFloat(0.00125),
	}

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if order.ID.String() == "" {
		t.Fatal("expected generated order ID")
	}

	found, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !found.TotalAmount.Equal(order.TotalAmount) {
		t.Errorf("total amount mismatch: got %s want %s", found.TotalAmount, order.TotalAmount)
	}
	if found.ReportingCode != order.ReportingCode {
		t.Errorf("reporting code mismatch: got %s want %s", found.ReportingCode, order.ReportingCode)
	}
}
