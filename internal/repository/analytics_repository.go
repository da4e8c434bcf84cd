package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
)

// AnalyticsRepository is the read side of the warehouse. Every method reads
// inside a read-only transaction.
type AnalyticsRepository interface {
	ARSnapshots(ctx context.Context) ([]domain.ARSnapshot, error)
	// LatestARSnapshot returns nil when no AR aging is loaded.
	LatestARSnapshot(ctx context.Context) (*time.Time, error)
	ARByDivision(ctx context.Context, snapshot time.Time) ([]domain.ARDivisionSummary, error)

	SalesSummary(ctx context.Context, filter *domain.DashboardFilter) (*domain.SalesSummary, error)
	SalesByDivision(ctx context.Context, filter *domain.DashboardFilter) ([]domain.SalesByDivision, error)

	YieldSummary(ctx context.Context, filter *domain.DashboardFilter, completed domain.CompletedPredicate, threshold float64) (*domain.YieldSummary, error)

	InventoryByPlant(ctx context.Context, filter *domain.DashboardFilter) ([]domain.InventorySummary, error)
	CurrentStock(ctx context.Context, filter *domain.DashboardFilter) ([]domain.StockItem, error)

	LeadTimeSummary(ctx context.Context, filter *domain.DashboardFilter) ([]domain.LeadTimeSummary, error)
	LeadTimeOrders(ctx context.Context, filter *domain.DashboardFilter) ([]domain.LeadTime, error)
	MTOPurchaseTotals(ctx context.Context, filter *domain.DashboardFilter) (*domain.MTOSummary, error)

	AlertSummary(ctx context.Context, filter *domain.DashboardFilter) ([]domain.AlertSummary, error)
	Alerts(ctx context.Context, filter *domain.DashboardFilter) ([]domain.Alert, error)
}
