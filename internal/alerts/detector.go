package alerts

import (
	"context"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/leadtime"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Counters struct {
	Raised   int `json:"raised"`
	Updated  int `json:"updated"`
	Resolved int `json:"resolved"`
	Active   int `json:"active"`
}

type Detector struct {
	db    *postgres.DB
	rules schema.Rules
}

func NewDetector(db *postgres.DB, rules schema.Rules) *Detector {
	return &Detector{db: db, rules: rules}
}

const upsertAlert = `
	INSERT INTO fact_alerts (batch, alert_type, severity, status, material_code, plant_code, order_number,
	                         receipt_at, stuck_hours, yield_pct, message, detected_at, resolved_at, updated_at)
	VALUES (:batch, :alert_type, :severity, :status, :material_code, :plant_code, :order_number,
	        :receipt_at, :stuck_hours, :yield_pct, :message, :detected_at, :resolved_at, :updated_at)
	ON CONFLICT (batch, alert_type) DO UPDATE SET
		severity = EXCLUDED.severity,
		status = EXCLUDED.status,
		material_code = EXCLUDED.material_code,
		plant_code = EXCLUDED.plant_code,
		order_number = EXCLUDED.order_number,
		receipt_at = EXCLUDED.receipt_at,
		stuck_hours = EXCLUDED.stuck_hours,
		yield_pct = EXCLUDED.yield_pct,
		message = EXCLUDED.message,
		detected_at = EXCLUDED.detected_at,
		resolved_at = EXCLUDED.resolved_at,
		updated_at = EXCLUDED.updated_at`

// Detect evaluates both alert types as of now and writes the differences.
// Low yield covers finished orders and bulk-to-packed batch pairs.
func (d *Detector) Detect(ctx context.Context, now time.Time) (Counters, error) {
	var c Counters
	err := d.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := postgres.AdvisoryXactLock(ctx, tx, "fact:alerts"); err != nil {
			return err
		}
		movs, err := leadtime.LoadMovements(ctx, tx)
		if err != nil {
			return err
		}
		orders, err := leadtime.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		var unbatched []domain.FactProduction
		if err := tx.SelectContext(ctx, &unbatched, `
			SELECT order_number, batch, plant_code, material_code, finish_date, order_qty, delivered_qty, uom
			FROM fact_production
			WHERE batch = '' AND finish_date IS NOT NULL`); err != nil {
			return postgres.WrapErr("select unbatched orders", err)
		}
		yieldMovs, err := leadtime.LoadYieldMovements(ctx, tx, d.rules)
		if err != nil {
			return err
		}
		factors, err := leadtime.LoadKgFactors(ctx, tx)
		if err != nil {
			return err
		}
		var existing []domain.Alert
		if err := tx.SelectContext(ctx, &existing, `
			SELECT id, batch, alert_type, severity, status, material_code, plant_code, order_number,
			       receipt_at, stuck_hours, yield_pct, message, detected_at, resolved_at, updated_at
			FROM fact_alerts`); err != nil {
			return postgres.WrapErr("select fact_alerts", err)
		}

		byBatch := make(map[string]domain.FactProduction, len(orders))
		for _, o := range orders {
			byBatch[o.Batch] = o
		}
		findings := Stuck(leadtime.GroupByBatch(movs), byBatch, d.rules, now)
		for k, f := range LowYield(append(orders, unbatched...), d.rules, now) {
			findings[k] = f
		}
		for k, f := range PairLowYield(leadtime.PairYields(yieldMovs, factors, d.rules), d.rules, now) {
			findings[k] = f
		}

		plan := Reconcile(findings, existing,
			[]domain.AlertType{domain.AlertStuckInTransit, domain.AlertLowYield}, now)
		if len(plan.Writes) > 0 {
			stmt, err := tx.PrepareNamedContext(ctx, upsertAlert)
			if err != nil {
				return postgres.WrapErr("prepare fact_alerts upsert", err)
			}
			defer stmt.Close()
			for i := range plan.Writes {
				if _, err := stmt.ExecContext(ctx, &plan.Writes[i]); err != nil {
					return postgres.WrapErr("upsert fact_alerts", err)
				}
			}
		}
		c = Counters{Raised: plan.Raised, Updated: plan.Updated, Resolved: plan.Resolved, Active: plan.Active}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return c, domain.ErrCancelled
		}
		return c, err
	}

	log.Info().
		Int("raised", c.Raised).
		Int("updated", c.Updated).
		Int("resolved", c.Resolved).
		Int("active", c.Active).
		Msg("Alerts detected")
	return c, nil
}
