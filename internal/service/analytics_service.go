package service

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/erpflow/internal/cache"
	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ErrMissingPredicate is returned when a yield query carries no completed
// statuses.
var ErrMissingPredicate = errors.New("completed statuses are required")

type AnalyticsService struct {
	repo              repository.AnalyticsRepository
	cache             cache.DashboardCache
	lowYieldThreshold decimal.Decimal
}

func NewAnalyticsService(repo repository.AnalyticsRepository, cacheImpl cache.DashboardCache, lowYieldThreshold decimal.Decimal) *AnalyticsService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}
	return &AnalyticsService{repo: repo, cache: cacheImpl, lowYieldThreshold: lowYieldThreshold}
}

// cached serves view from the dashboard cache, falling back to load. Cache
// failures are logged and never fail the request.
func cached[T any](ctx context.Context, c cache.DashboardCache, view string, key any, load func() (T, error)) (T, error) {
	var out T
	if ok, err := c.Get(ctx, view, key, &out); err == nil && ok {
		return out, nil
	} else if err != nil {
		log.Warn().Err(err).Str("view", view).Msg("analytics: cache get failed")
	}

	out, err := load()
	if err != nil {
		return out, err
	}

	if err := c.Set(ctx, view, key, out); err != nil {
		log.Warn().Err(err).Str("view", view).Msg("analytics: cache set failed")
	}
	return out, nil
}

// percent returns part/whole*100 rounded to places, zero when whole is zero.
func percent(part, whole decimal.Decimal, places int32) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(places)
}

func (s *AnalyticsService) ARSnapshots(ctx context.Context) ([]domain.ARSnapshot, error) {
	return cached(ctx, s.cache, "ar_snapshots", nil, func() ([]domain.ARSnapshot, error) {
		out, err := s.repo.ARSnapshots(ctx)
		if out == nil {
			out = make([]domain.ARSnapshot, 0)
		}
		return out, err
	})
}

// ARSummary reports collection by division for snapshot, or the latest
// snapshot when snapshot is nil.
func (s *AnalyticsService) ARSummary(ctx context.Context, snapshot *time.Time) (*domain.ARSummary, error) {
	if snapshot == nil {
		latest, err := s.repo.LatestARSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return &domain.ARSummary{Divisions: make([]domain.ARDivisionSummary, 0), Total: domain.ARDivisionSummary{Division: "TOTAL"}}, nil
		}
		snapshot = latest
	}

	key := domain.DashboardFilter{SnapshotDate: snapshot}
	return cached(ctx, s.cache, "ar_summary", key, func() (*domain.ARSummary, error) {
		rows, err := s.repo.ARByDivision(ctx, *snapshot)
		if err != nil {
			return nil, err
		}
		summary := &domain.ARSummary{
			SnapshotDate: snapshot,
			Divisions:    make([]domain.ARDivisionSummary, 0, len(rows)),
			Total:        domain.ARDivisionSummary{Division: "TOTAL"},
		}
		for _, row := range rows {
			row.CollectionPct = percent(row.TotalRealization, row.TotalTarget, 0)
			summary.Divisions = append(summary.Divisions, row)
			summary.Total.Customers += row.Customers
			summary.Total.TotalTarget = summary.Total.TotalTarget.Add(row.TotalTarget)
			summary.Total.TotalRealization = summary.Total.TotalRealization.Add(row.TotalRealization)
		}
		summary.Total.CollectionPct = percent(summary.Total.TotalRealization, summary.Total.TotalTarget, 0)
		return summary, nil
	})
}

func (s *AnalyticsService) SalesSummary(ctx context.Context, filter domain.DashboardFilter) (*domain.SalesSummary, error) {
	return cached(ctx, s.cache, "sales_summary", filter, func() (*domain.SalesSummary, error) {
		summary, err := s.repo.SalesSummary(ctx, &filter)
		if err != nil {
			return nil, err
		}
		summary.AchievementPct = percent(summary.NetValue, summary.TargetAmount, 2)
		return summary, nil
	})
}

func (s *AnalyticsService) SalesByDivision(ctx context.Context, filter domain.DashboardFilter) ([]domain.SalesByDivision, error) {
	return cached(ctx, s.cache, "sales_by_division", filter, func() ([]domain.SalesByDivision, error) {
		rows, err := s.repo.SalesByDivision(ctx, &filter)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, row := range rows {
			total = total.Add(row.NetValue)
		}
		out := make([]domain.SalesByDivision, 0, len(rows))
		for _, row := range rows {
			row.SharePct = percent(row.NetValue, total, 2)
			out = append(out, row)
		}
		return out, nil
	})
}

type yieldKey struct {
	domain.DashboardFilter
	Completed []string `json:"completed"`
}

// YieldSummary needs an explicit completed predicate; there is no default.
func (s *AnalyticsService) YieldSummary(ctx context.Context, filter domain.DashboardFilter, completed domain.CompletedPredicate) (*domain.YieldSummary, error) {
	if completed.Empty() {
		return nil, ErrMissingPredicate
	}
	key := yieldKey{DashboardFilter: filter, Completed: completed.Statuses}
	return cached(ctx, s.cache, "yield_summary", key, func() (*domain.YieldSummary, error) {
		summary, err := s.repo.YieldSummary(ctx, &filter, completed, s.lowYieldThreshold.InexactFloat64())
		if err != nil {
			return nil, err
		}
		summary.YieldPct = percent(summary.DeliveredQty, summary.OrderQty, 2)
		return summary, nil
	})
}

func (s *AnalyticsService) InventoryByPlant(ctx context.Context, filter domain.DashboardFilter) ([]domain.InventorySummary, error) {
	return cached(ctx, s.cache, "inventory_summary", filter, func() ([]domain.InventorySummary, error) {
		out, err := s.repo.InventoryByPlant(ctx, &filter)
		if out == nil {
			out = make([]domain.InventorySummary, 0)
		}
		return out, err
	})
}

func (s *AnalyticsService) CurrentStock(ctx context.Context, filter domain.DashboardFilter) ([]domain.StockItem, error) {
	out, err := s.repo.CurrentStock(ctx, &filter)
	if out == nil {
		out = make([]domain.StockItem, 0)
	}
	return out, err
}

func (s *AnalyticsService) LeadTimeSummary(ctx context.Context, filter domain.DashboardFilter) ([]domain.LeadTimeSummary, error) {
	return cached(ctx, s.cache, "leadtime_summary", filter, func() ([]domain.LeadTimeSummary, error) {
		out, err := s.repo.LeadTimeSummary(ctx, &filter)
		if out == nil {
			out = make([]domain.LeadTimeSummary, 0)
		}
		return out, err
	})
}

func (s *AnalyticsService) LeadTimeOrders(ctx context.Context, filter domain.DashboardFilter) ([]domain.LeadTime, error) {
	out, err := s.repo.LeadTimeOrders(ctx, &filter)
	if out == nil {
		out = make([]domain.LeadTime, 0)
	}
	return out, err
}

// MTOSummary combines the MTO lead-time counters with the purchase orders
// feeding those batches.
func (s *AnalyticsService) MTOSummary(ctx context.Context, filter domain.DashboardFilter) (*domain.MTOSummary, error) {
	filter.Category = domain.CategoryMTO
	return cached(ctx, s.cache, "mto_summary", filter, func() (*domain.MTOSummary, error) {
		rows, err := s.repo.LeadTimeSummary(ctx, &filter)
		if err != nil {
			return nil, err
		}
		summary, err := s.repo.MTOPurchaseTotals(ctx, &filter)
		if err != nil {
			return nil, err
		}
		summary.LeadTimeSummary = domain.LeadTimeSummary{Category: domain.CategoryMTO}
		for _, row := range rows {
			if row.Category == domain.CategoryMTO {
				summary.LeadTimeSummary = row
			}
		}
		return summary, nil
	})
}

func (s *AnalyticsService) MTOOrders(ctx context.Context, filter domain.DashboardFilter) ([]domain.LeadTime, error) {
	filter.Category = domain.CategoryMTO
	return s.LeadTimeOrders(ctx, filter)
}

func (s *AnalyticsService) AlertSummary(ctx context.Context, filter domain.DashboardFilter) ([]domain.AlertSummary, error) {
	return cached(ctx, s.cache, "alert_summary", filter, func() ([]domain.AlertSummary, error) {
		out, err := s.repo.AlertSummary(ctx, &filter)
		if out == nil {
			out = make([]domain.AlertSummary, 0)
		}
		return out, err
	})
}

func (s *AnalyticsService) Alerts(ctx context.Context, filter domain.DashboardFilter) ([]domain.Alert, error) {
	out, err := s.repo.Alerts(ctx, &filter)
	if out == nil {
		out = make([]domain.Alert, 0)
	}
	return out, err
}
