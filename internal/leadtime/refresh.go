package leadtime

import (
	"context"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var leadTimeSpec = postgres.FactSpec{
	Table: "fact_lead_time",
	Key:   []string{"order_number", "batch"},
	Columns: []string{
		"material_code", "plant_code", "category", "po_number", "po_date", "release_date",
		"finish_date", "receipt_at", "issue_at", "delivery_number", "delivery_gi_date",
		"preparation_days", "production_days", "transit_days", "storage_days", "delivery_days",
		"total_days", "target_days", "status",
	},
}

type Counters struct {
	Orders    int                           `json:"orders"`
	Inserted  int                           `json:"inserted"`
	Updated   int                           `json:"updated"`
	Unchanged int                           `json:"unchanged"`
	Removed   int64                         `json:"removed"`
	ByStatus  map[domain.LeadTimeStatus]int `json:"by_status"`
}

type Refresher struct {
	db    *postgres.DB
	rules schema.Rules
}

func NewRefresher(db *postgres.DB, rules schema.Rules) *Refresher {
	return &Refresher{db: db, rules: rules}
}

// Refresh recomputes every timeline and writes only those whose content
// changed.
func (r *Refresher) Refresh(ctx context.Context) (Counters, error) {
	var c Counters
	start := time.Now()
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := postgres.AdvisoryXactLock(ctx, tx, "fact:lead_time"); err != nil {
			return err
		}
		in, err := loadInputs(ctx, tx)
		if err != nil {
			return err
		}
		lts := Compute(in, r.rules)
		SortByBatch(lts)

		res, err := postgres.UpsertFacts(ctx, tx, leadTimeSpec, lts)
		if err != nil {
			return err
		}
		removed, err := tx.ExecContext(ctx, `
			DELETE FROM fact_lead_time lt
			WHERE NOT EXISTS (
				SELECT 1 FROM fact_production p
				WHERE p.order_number = lt.order_number AND p.batch = lt.batch
			)`)
		if err != nil {
			return postgres.WrapErr("prune fact_lead_time", err)
		}
		n, _ := removed.RowsAffected()

		c = Counters{
			Orders:    len(lts),
			Inserted:  res.Inserted,
			Updated:   res.Updated,
			Unchanged: res.Unchanged,
			Removed:   n,
			ByStatus:  Summarize(lts),
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return c, domain.ErrCancelled
		}
		return c, err
	}

	log.Info().
		Int("orders", c.Orders).
		Int("inserted", c.Inserted).
		Int("updated", c.Updated).
		Int("unchanged", c.Unchanged).
		Dur("took", time.Since(start)).
		Msg("Lead time refreshed")
	return c, nil
}

func loadInputs(ctx context.Context, tx *sqlx.Tx) (Inputs, error) {
	var in Inputs
	orders, err := LoadOrders(ctx, tx)
	if err != nil {
		return in, err
	}
	movs, err := LoadMovements(ctx, tx)
	if err != nil {
		return in, err
	}

	var pos []struct {
		PONumber string     `db:"po_number"`
		PODate   *time.Time `db:"po_date"`
	}
	if err := tx.SelectContext(ctx, &pos,
		`SELECT po_number, MIN(po_date) AS po_date FROM fact_purchase_order GROUP BY po_number`); err != nil {
		return in, postgres.WrapErr("select purchase orders", err)
	}
	var deliveries []struct {
		Delivery string     `db:"delivery"`
		GIDate   *time.Time `db:"actual_gi_date"`
	}
	if err := tx.SelectContext(ctx, &deliveries,
		`SELECT delivery, MIN(actual_gi_date) AS actual_gi_date FROM fact_delivery GROUP BY delivery`); err != nil {
		return in, postgres.WrapErr("select deliveries", err)
	}

	in.Orders = orders
	in.Movements = GroupByBatch(movs)
	in.PODates = make(map[string]*time.Time, len(pos))
	for _, p := range pos {
		in.PODates[p.PONumber] = p.PODate
	}
	in.DeliveryGI = make(map[string]*time.Time, len(deliveries))
	for _, d := range deliveries {
		in.DeliveryGI[d.Delivery] = d.GIDate
	}
	return in, nil
}

// LoadOrders reads the production facts that carry a batch.
func LoadOrders(ctx context.Context, q sqlx.QueryerContext) ([]domain.FactProduction, error) {
	var orders []domain.FactProduction
	if err := sqlx.SelectContext(ctx, q, &orders, `
		SELECT order_number, batch, plant_code, material_code, material_desc, release_date, finish_date,
		       system_status, order_qty, delivered_qty, uom
		FROM fact_production
		WHERE batch <> ''
		ORDER BY order_number, batch`); err != nil {
		return nil, postgres.WrapErr("select production orders", err)
	}
	return orders, nil
}

// LoadMovements reads the receipt and issue movements, with their reversals,
// in arrival order.
func LoadMovements(ctx context.Context, q sqlx.QueryerContext) ([]Movement, error) {
	var movs []Movement
	if err := sqlx.SelectContext(ctx, q, &movs, `
		SELECT id, posting_at, movement_type, plant, COALESCE(material, '') AS material,
		       COALESCE(batch, '') AS batch, qty, COALESCE(purchase_order, '') AS purchase_order,
		       COALESCE(reference, '') AS reference
		FROM raw_movements
		WHERE movement_type IN ($1, $2, $3, $4)
		  AND posting_at IS NOT NULL AND plant IS NOT NULL
		  AND COALESCE(batch, '') <> ''
		ORDER BY posting_at, id`,
		schema.MvtGoodsReceipt, schema.MvtGoodsReceiptReversal,
		schema.MvtGoodsIssue, schema.MvtGoodsIssueReversal); err != nil {
		return nil, postgres.WrapErr("select movements", err)
	}
	return movs, nil
}

// LoadYieldMovements reads bulk consumption at the factory and packed receipts
// at the distribution plant, with their reversals, in arrival order.
func LoadYieldMovements(ctx context.Context, q sqlx.QueryerContext, rules schema.Rules) ([]Movement, error) {
	var movs []Movement
	if err := sqlx.SelectContext(ctx, q, &movs, `
		SELECT id, posting_at, movement_type, plant, COALESCE(material, '') AS material,
		       COALESCE(material_desc, '') AS material_desc, COALESCE(batch, '') AS batch, qty,
		       COALESCE(unit, '') AS unit
		FROM raw_movements
		WHERE ((plant = $1 AND movement_type IN ($2, $3)) OR (plant = $4 AND movement_type IN ($5, $6)))
		  AND posting_at IS NOT NULL
		  AND COALESCE(batch, '') <> ''
		ORDER BY posting_at, id`,
		rules.FactoryPlant, schema.MvtConsumption, schema.MvtConsumptionReversal,
		rules.DistributionPlant, schema.MvtGoodsReceipt, schema.MvtGoodsReceiptReversal); err != nil {
		return nil, postgres.WrapErr("select yield movements", err)
	}
	return movs, nil
}

// LoadKgFactors reads the per-material unit weights derived from billing.
func LoadKgFactors(ctx context.Context, q sqlx.QueryerContext) (KgFactors, error) {
	var rows []struct {
		Material string          `db:"material_code"`
		KgPer    decimal.Decimal `db:"kg_per_unit"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT material_code, kg_per_unit FROM dim_uom_conversion`); err != nil {
		return nil, postgres.WrapErr("select dim_uom_conversion", err)
	}
	out := make(KgFactors, len(rows))
	for _, r := range rows {
		out[r.Material] = r.KgPer
	}
	return out, nil
}
