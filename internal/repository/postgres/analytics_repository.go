package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit = 200
	maxListLimit     = 5000
)

type analyticsRepository struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) *analyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) selectRead(ctx context.Context, op string, dest any, query string, args ...any) error {
	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, dest, query, args...)
	})
	if err != nil {
		log.Error().Err(err).Str("query", op).Msg("analytics: query failed")
		return wrapErr(op, err)
	}
	return nil
}

func (r *analyticsRepository) getRead(ctx context.Context, op string, dest any, query string, args ...any) error {
	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, dest, query, args...)
	})
	if err != nil {
		log.Error().Err(err).Str("query", op).Msg("analytics: query failed")
		return wrapErr(op, err)
	}
	return nil
}

func (r *analyticsRepository) ARSnapshots(ctx context.Context) ([]domain.ARSnapshot, error) {
	var out []domain.ARSnapshot
	err := r.selectRead(ctx, "ar snapshots", &out, `
		SELECT snapshot_date, COUNT(*) AS row_count
		FROM fact_ar_aging
		GROUP BY snapshot_date
		ORDER BY snapshot_date DESC`)
	return out, err
}

func (r *analyticsRepository) LatestARSnapshot(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	if err := r.getRead(ctx, "latest ar snapshot", &latest, `SELECT MAX(snapshot_date) FROM fact_ar_aging`); err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *analyticsRepository) ARByDivision(ctx context.Context, snapshot time.Time) ([]domain.ARDivisionSummary, error) {
	var out []domain.ARDivisionSummary
	err := r.selectRead(ctx, "ar by division", &out, `
		SELECT division,
		       COUNT(DISTINCT customer_code) AS customers,
		       COALESCE(SUM(total_target), 0) AS total_target,
		       COALESCE(SUM(total_realization), 0) AS total_realization
		FROM fact_ar_aging
		WHERE snapshot_date = $1
		GROUP BY division
		ORDER BY division`, snapshot.Format("2006-01-02"))
	return out, err
}

func (r *analyticsRepository) SalesSummary(ctx context.Context, filter *domain.DashboardFilter) (*domain.SalesSummary, error) {
	var fb filterBuilder
	fb.dateRange(filter, "b.billing_date")
	where := fb.where()

	query := fmt.Sprintf(`
		WITH billed AS (
			SELECT b.* FROM fact_billing b %s
		)
		SELECT COUNT(DISTINCT billing_document) AS documents,
		       COUNT(DISTINCT customer_name) AS customers,
		       COALESCE(SUM(billing_qty), 0) AS billing_qty,
		       COALESCE(SUM(net_weight), 0) AS net_weight_kg,
		       COALESCE(SUM(net_value), 0) AS net_value,
		       COALESCE(SUM(tax), 0) AS tax,
		       COALESCE(SUM(total), 0) AS total,
		       (SELECT COALESCE(SUM(t.target_amount), 0)
		        FROM fact_target t
		        WHERE (t.year, t.semester) IN (SELECT DISTINCT year, semester FROM billed)) AS target_amount
		FROM billed`, where)

	var s domain.SalesSummary
	if err := r.getRead(ctx, "sales summary", &s, query, fb.args...); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *analyticsRepository) SalesByDivision(ctx context.Context, filter *domain.DashboardFilter) ([]domain.SalesByDivision, error) {
	var fb filterBuilder
	fb.dateRange(filter, "billing_date")
	var out []domain.SalesByDivision
	err := r.selectRead(ctx, "sales by division", &out, `
		SELECT division,
		       COALESCE(SUM(net_value), 0) AS net_value,
		       COALESCE(SUM(total), 0) AS total
		FROM fact_billing`+fb.where()+`
		GROUP BY division
		ORDER BY net_value DESC`, fb.args...)
	return out, err
}

func (r *analyticsRepository) YieldSummary(ctx context.Context, filter *domain.DashboardFilter, completed domain.CompletedPredicate, threshold float64) (*domain.YieldSummary, error) {
	var fb filterBuilder
	fb.dateRange(filter, "p.finish_date")
	where := fb.where()
	done := fb.completed(completed, "p")
	fb.args = append(fb.args, threshold)
	thresholdArg := len(fb.args)

	query := fmt.Sprintf(`
		SELECT COUNT(*) AS orders,
		       COUNT(*) FILTER (WHERE %[2]s) AS completed,
		       COALESCE(SUM(p.order_qty) FILTER (WHERE %[2]s), 0) AS order_qty,
		       COALESCE(SUM(p.delivered_qty) FILTER (WHERE %[2]s), 0) AS delivered_qty,
		       COUNT(*) FILTER (WHERE %[2]s AND p.order_qty > 0
		                        AND COALESCE(p.delivered_qty, 0) * 100 / p.order_qty < $%[3]d) AS low_yield
		FROM fact_production p%[1]s`, where, done, thresholdArg)

	var y domain.YieldSummary
	if err := r.getRead(ctx, "yield summary", &y, query, fb.args...); err != nil {
		return nil, err
	}
	return &y, nil
}

func (r *analyticsRepository) InventoryByPlant(ctx context.Context, filter *domain.DashboardFilter) ([]domain.InventorySummary, error) {
	var fb filterBuilder
	fb.dateRange(filter, "last_movement_date")
	var out []domain.InventorySummary
	err := r.selectRead(ctx, "inventory by plant", &out, `
		SELECT plant_code, MAX(plant_name) AS plant_name,
		       COUNT(DISTINCT material_code) AS materials,
		       COUNT(*) AS batches,
		       COALESCE(SUM(on_hand), 0) AS on_hand
		FROM v_current_stock`+fb.where()+`
		GROUP BY plant_code
		ORDER BY plant_code`, fb.args...)
	return out, err
}

func (r *analyticsRepository) CurrentStock(ctx context.Context, filter *domain.DashboardFilter) ([]domain.StockItem, error) {
	var fb filterBuilder
	fb.dateRange(filter, "last_movement_date")
	var out []domain.StockItem
	err := r.selectRead(ctx, "current stock", &out, fmt.Sprintf(`
		SELECT material_code, material_desc, plant_code, plant_name, batch, uom, on_hand, last_movement_date
		FROM v_current_stock%s
		ORDER BY last_movement_date DESC, material_code, plant_code, batch
		LIMIT %d`, fb.where(), limitOf(filter, defaultListLimit, maxListLimit)), fb.args...)
	return out, err
}

// leadTimeFilter applies the range to release dates, falling back to the PO
// date for MTO batches without a release.
func leadTimeFilter(filter *domain.DashboardFilter) filterBuilder {
	var fb filterBuilder
	fb.dateRange(filter, "COALESCE(release_date, po_date)")
	if filter == nil {
		return fb
	}
	if filter.Category != "" {
		fb.add("category = $%d", string(filter.Category))
	}
	if filter.Status != "" {
		fb.add("status = $%d", filter.Status)
	}
	return fb
}

func (r *analyticsRepository) LeadTimeSummary(ctx context.Context, filter *domain.DashboardFilter) ([]domain.LeadTimeSummary, error) {
	fb := leadTimeFilter(filter)
	var out []domain.LeadTimeSummary
	err := r.selectRead(ctx, "lead time summary", &out, `
		SELECT category,
		       COUNT(*) AS orders,
		       COUNT(*) FILTER (WHERE status = 'on_time') AS on_time,
		       COUNT(*) FILTER (WHERE status = 'delayed') AS delayed,
		       COUNT(*) FILTER (WHERE status = 'critical') AS critical,
		       COUNT(*) FILTER (WHERE status = 'unknown') AS unknown,
		       ROUND(AVG(total_days), 1) AS avg_total_days,
		       MAX(target_days) AS target_days
		FROM fact_lead_time`+fb.where()+`
		GROUP BY category
		ORDER BY category`, fb.args...)
	return out, err
}

func (r *analyticsRepository) LeadTimeOrders(ctx context.Context, filter *domain.DashboardFilter) ([]domain.LeadTime, error) {
	fb := leadTimeFilter(filter)
	var out []domain.LeadTime
	err := r.selectRead(ctx, "lead time orders", &out, fmt.Sprintf(`
		SELECT order_number, batch, material_code, plant_code, category, po_number, po_date,
		       release_date, finish_date, receipt_at, issue_at, delivery_number, delivery_gi_date,
		       preparation_days, production_days, transit_days, storage_days, delivery_days,
		       total_days, target_days, status, row_hash
		FROM fact_lead_time%s
		ORDER BY total_days DESC NULLS LAST, order_number, batch
		LIMIT %d`, fb.where(), limitOf(filter, defaultListLimit, maxListLimit)), fb.args...)
	return out, err
}

func (r *analyticsRepository) MTOPurchaseTotals(ctx context.Context, filter *domain.DashboardFilter) (*domain.MTOSummary, error) {
	f := domain.DashboardFilter{Category: domain.CategoryMTO}
	if filter != nil {
		f.StartDate, f.EndDate = filter.StartDate, filter.EndDate
	}
	fb := leadTimeFilter(&f)
	var s domain.MTOSummary
	err := r.getRead(ctx, "mto purchase totals", &s, `
		SELECT COUNT(DISTINCT po.po_number) AS purchase_orders,
		       COALESCE(SUM(po.qty_order), 0) AS qty_order,
		       COALESCE(SUM(po.qty_receipt), 0) AS qty_receipt
		FROM fact_purchase_order po
		WHERE po.po_number IN (SELECT po_number FROM fact_lead_time`+fb.where()+`)`, fb.args...)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func alertFilter(filter *domain.DashboardFilter) filterBuilder {
	var fb filterBuilder
	fb.dateRange(filter, "detected_at::date")
	if filter == nil {
		return fb
	}
	if filter.Status != "" {
		fb.add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		fb.add("alert_type = $%d", filter.Type)
	}
	return fb
}

func (r *analyticsRepository) AlertSummary(ctx context.Context, filter *domain.DashboardFilter) ([]domain.AlertSummary, error) {
	f := domain.DashboardFilter{Status: string(domain.AlertActive)}
	if filter != nil {
		f.StartDate, f.EndDate, f.Type = filter.StartDate, filter.EndDate, filter.Type
	}
	fb := alertFilter(&f)
	var out []domain.AlertSummary
	err := r.selectRead(ctx, "alert summary", &out, `
		SELECT severity, COUNT(*) AS count
		FROM fact_alerts`+fb.where()+`
		GROUP BY severity
		ORDER BY CASE severity WHEN 'critical' THEN 0 WHEN 'high' THEN 1 ELSE 2 END`, fb.args...)
	return out, err
}

func (r *analyticsRepository) Alerts(ctx context.Context, filter *domain.DashboardFilter) ([]domain.Alert, error) {
	fb := alertFilter(filter)
	var out []domain.Alert
	err := r.selectRead(ctx, "alerts", &out, fmt.Sprintf(`
		SELECT id, batch, alert_type, severity, status, material_code, plant_code, order_number,
		       receipt_at, stuck_hours, yield_pct, message, detected_at, resolved_at, updated_at
		FROM fact_alerts%s
		ORDER BY CASE severity WHEN 'critical' THEN 0 WHEN 'high' THEN 1 ELSE 2 END, detected_at
		LIMIT %d`, fb.where(), limitOf(filter, defaultListLimit, maxListLimit)), fb.args...)
	return out, err
}
