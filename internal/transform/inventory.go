package transform

import (
	"context"

	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/jmoiron/sqlx"
)

// inventoryAggregate sums the movement log into daily quantities per
// material, plant and batch. Quantities are taken unsigned and signed by the
// movement type's stock impact.
const inventoryAggregate = `
	SELECT material AS material_code, plant AS plant_code, COALESCE(batch, '') AS batch,
	       posting_at::date AS movement_date, MAX(COALESCE(unit, '')) AS uom,
	       SUM(CASE WHEN COALESCE(d.stock_impact, 0) > 0 THEN ABS(COALESCE(m.qty, 0)) ELSE 0 END) AS qty_in,
	       SUM(CASE WHEN COALESCE(d.stock_impact, 0) < 0 THEN ABS(COALESCE(m.qty, 0)) ELSE 0 END) AS qty_out,
	       SUM(COALESCE(d.stock_impact, 0) * ABS(COALESCE(m.qty, 0))) AS net_qty,
	       COUNT(*) AS movement_count
	FROM raw_movements m
	LEFT JOIN dim_mvt d ON d.mvt_code = m.movement_type
	WHERE COALESCE(m.material, '') <> ''
	GROUP BY 1, 2, 3, 4`

func (t *Transformer) inventory(ctx context.Context, tx *sqlx.Tx, _ Scope, c *Counters) error {
	// Stock impact comes from dim_mvt; without it every net quantity is zero.
	if err := t.seedStatic(ctx, tx); err != nil {
		return err
	}
	var stats struct {
		Total      int `db:"total"`
		NoMaterial int `db:"no_material"`
		Groups     int `db:"groups"`
	}
	if err := tx.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE COALESCE(material, '') = '') AS no_material,
		       COUNT(DISTINCT (material, plant, COALESCE(batch, ''), posting_at::date))
		           FILTER (WHERE COALESCE(material, '') <> '') AS groups
		FROM raw_movements`); err != nil {
		return postgres.WrapErr("count raw_movements", err)
	}
	c.Selected = stats.Total
	c.Skipped = stats.NoMaterial

	rows, err := tx.QueryContext(ctx, `
		INSERT INTO fact_inventory (material_code, plant_code, batch, movement_date, uom,
		                            qty_in, qty_out, net_qty, movement_count, row_hash, updated_at)
		SELECT material_code, plant_code, batch, movement_date, uom, qty_in, qty_out, net_qty, movement_count,
		       md5(concat_ws('|', uom, qty_in, qty_out, net_qty, movement_count)), NOW()
		FROM (`+inventoryAggregate+`) agg
		ON CONFLICT (material_code, plant_code, batch, movement_date) DO UPDATE SET
			uom = EXCLUDED.uom,
			qty_in = EXCLUDED.qty_in,
			qty_out = EXCLUDED.qty_out,
			net_qty = EXCLUDED.net_qty,
			movement_count = EXCLUDED.movement_count,
			row_hash = EXCLUDED.row_hash,
			updated_at = NOW()
		WHERE fact_inventory.row_hash IS DISTINCT FROM EXCLUDED.row_hash
		RETURNING (xmax = 0)`)
	if err != nil {
		return postgres.WrapErr("upsert fact_inventory", err)
	}
	defer rows.Close()
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return postgres.WrapErr("scan fact_inventory", err)
		}
		if inserted {
			c.Inserted++
		} else {
			c.Updated++
		}
	}
	if err := rows.Err(); err != nil {
		return postgres.WrapErr("upsert fact_inventory", err)
	}
	c.Unchanged = stats.Groups - c.Inserted - c.Updated
	return nil
}
