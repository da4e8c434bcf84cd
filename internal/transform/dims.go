package transform

import (
	"context"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// SeedDimensions upserts the static plant, movement type and distribution
// channel dimensions.
func (t *Transformer) SeedDimensions(ctx context.Context) error {
	return t.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return t.seedStatic(ctx, tx)
	})
}

// seedStatic writes the reference tables inside tx. Rows already matching the
// reference data are left untouched.
func (t *Transformer) seedStatic(ctx context.Context, tx *sqlx.Tx) error {
	for _, p := range schema.Plants {
		role := p.Role
		switch p.Code {
		case t.rules.FactoryPlant:
			role = "FACTORY"
		case t.rules.DistributionPlant:
			role = "DC"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dim_plant (plant_code, plant_name, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (plant_code) DO UPDATE SET plant_name = EXCLUDED.plant_name, role = EXCLUDED.role
			WHERE (dim_plant.plant_name, dim_plant.role) IS DISTINCT FROM (EXCLUDED.plant_name, EXCLUDED.role)`,
			p.Code, p.Name, role); err != nil {
			return postgres.WrapErr("seed dim_plant", err)
		}
	}
	for _, m := range schema.MovementTypes {
		var reversalOf any
		if m.ReversalOf != 0 {
			reversalOf = m.ReversalOf
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dim_mvt (mvt_code, description, category, reversal_of, stock_impact)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (mvt_code) DO UPDATE SET
				description = EXCLUDED.description,
				category = EXCLUDED.category,
				reversal_of = EXCLUDED.reversal_of,
				stock_impact = EXCLUDED.stock_impact
			WHERE (dim_mvt.description, dim_mvt.category, dim_mvt.reversal_of, dim_mvt.stock_impact)
				IS DISTINCT FROM (EXCLUDED.description, EXCLUDED.category, EXCLUDED.reversal_of, EXCLUDED.stock_impact)`,
			m.Code, m.Description, m.Category, reversalOf, m.StockImpact); err != nil {
			return postgres.WrapErr("seed dim_mvt", err)
		}
	}
	for _, ch := range schema.DistChannels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dim_dist_channel (channel_code, division)
			VALUES ($1, $2)
			ON CONFLICT (channel_code) DO UPDATE SET division = EXCLUDED.division
			WHERE dim_dist_channel.division IS DISTINCT FROM EXCLUDED.division`,
			ch.Code, ch.Division); err != nil {
			return postgres.WrapErr("seed dim_dist_channel", err)
		}
	}
	log.Debug().Msg("Static dimensions seeded")
	return nil
}

func upsertHierarchy(ctx context.Context, tx *sqlx.Tx, nodes []domain.ProductHierarchyNode) error {
	if len(nodes) == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO dim_product_hierarchy (level, code, description, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (level, code) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
		WHERE dim_product_hierarchy.description IS DISTINCT FROM EXCLUDED.description`)
	if err != nil {
		return postgres.WrapErr("prepare dim_product_hierarchy", err)
	}
	defer stmt.Close()
	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, n.Level, n.Code, n.Description); err != nil {
			return postgres.WrapErr("upsert dim_product_hierarchy", err)
		}
	}
	return nil
}

// refreshUoMConversion derives kilograms per sales unit from billed weight.
func refreshUoMConversion(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dim_uom_conversion (material_code, kg_per_unit, sample_count, updated_at)
		SELECT material_code, ROUND(SUM(net_weight) / SUM(billing_qty), 6), COUNT(*), NOW()
		FROM fact_billing
		WHERE billing_qty > 0 AND net_weight IS NOT NULL AND material_code <> ''
		GROUP BY material_code
		ON CONFLICT (material_code) DO UPDATE SET
			kg_per_unit = EXCLUDED.kg_per_unit,
			sample_count = EXCLUDED.sample_count,
			updated_at = NOW()
		WHERE (dim_uom_conversion.kg_per_unit, dim_uom_conversion.sample_count)
			IS DISTINCT FROM (EXCLUDED.kg_per_unit, EXCLUDED.sample_count)`)
	if err != nil {
		return postgres.WrapErr("refresh dim_uom_conversion", err)
	}
	return nil
}
