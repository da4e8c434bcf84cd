// Package transform turns raw rows into deduplicated fact and dimension rows
// keyed by business key.
package transform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Scope narrows a transform. SnapshotDate applies to periodic families only;
// zero means the latest loaded snapshot.
type Scope struct {
	SnapshotDate time.Time
}

type Counters struct {
	Selected  int      `json:"selected"`
	Inserted  int      `json:"inserted"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

func (c *Counters) apply(r postgres.UpsertResult) {
	c.Inserted += r.Inserted
	c.Updated += r.Updated
	c.Unchanged += r.Unchanged
}

func (c *Counters) skip(max int, err error) {
	c.Skipped++
	if max <= 0 || len(c.Errors) < max {
		c.Errors = append(c.Errors, err.Error())
	}
}

type runner func(ctx context.Context, tx *sqlx.Tx, scope Scope, c *Counters) error

type Transformer struct {
	db        *postgres.DB
	rules     schema.Rules
	maxErrors int
}

func New(db *postgres.DB, rules schema.Rules, maxErrors int) *Transformer {
	if maxErrors <= 0 {
		maxErrors = 50
	}
	return &Transformer{db: db, rules: rules, maxErrors: maxErrors}
}

func (t *Transformer) runner(family domain.Family) (runner, bool) {
	switch family {
	case domain.FamilyBilling:
		return t.billing, true
	case domain.FamilyDelivery:
		return t.delivery, true
	case domain.FamilyProduction:
		return t.production, true
	case domain.FamilyMovements:
		return t.inventory, true
	case domain.FamilyPurchaseOrders:
		return t.purchaseOrders, true
	case domain.FamilySalesHierarchy:
		return t.salesHierarchy, true
	case domain.FamilyARAging:
		return t.arAging, true
	case domain.FamilyTargets:
		return t.targets, true
	}
	return nil, false
}

// Transform rebuilds the facts of one family from its raw table in a single
// transaction. A duplicate business key aborts the whole family.
func (t *Transformer) Transform(ctx context.Context, family domain.Family, scope Scope) (Counters, error) {
	var c Counters
	run, ok := t.runner(family)
	if !ok {
		return c, fmt.Errorf("no transform for family %q", family)
	}

	start := time.Now()
	err := t.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := postgres.AdvisoryXactLock(ctx, tx, "fact:"+string(family)); err != nil {
			return err
		}
		c = Counters{}
		return run(ctx, tx, scope, &c)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateBusinessKey) {
			c.Inserted, c.Updated, c.Unchanged = 0, 0, 0
			c.Errors = append(c.Errors, err.Error())
			return c, fmt.Errorf("%w: %s: %w", domain.ErrTransformAborted, family, err)
		}
		if ctx.Err() != nil {
			return c, domain.ErrCancelled
		}
		return c, fmt.Errorf("transform %s: %w", family, err)
	}

	log.Info().
		Str("family", family.String()).
		Int("selected", c.Selected).
		Int("inserted", c.Inserted).
		Int("updated", c.Updated).
		Int("unchanged", c.Unchanged).
		Int("skipped", c.Skipped).
		Dur("took", time.Since(start)).
		Msg("Transform finished")
	return c, nil
}

func collect[R any, T any](rows []R, project func(R) (candidate[T], error), c *Counters, max int) []candidate[T] {
	out := make([]candidate[T], 0, len(rows))
	for _, r := range rows {
		cand, err := project(r)
		if err != nil {
			c.skip(max, err)
			continue
		}
		out = append(out, cand)
	}
	return out
}

func definition(f domain.Family) schema.Definition {
	d, ok := schema.Lookup(f)
	if !ok {
		panic("transform: undeclared family " + string(f))
	}
	return d
}

func upsertResolved[R any, T any](ctx context.Context, tx *sqlx.Tx, rows []R, project func(R) (candidate[T], error), spec postgres.FactSpec, c *Counters, max int) error {
	c.Selected = len(rows)
	facts, err := resolve(collect(rows, project, c, max))
	if err != nil {
		return err
	}
	res, err := postgres.UpsertFacts(ctx, tx, spec, facts)
	if err != nil {
		return err
	}
	c.apply(res)
	return nil
}

func (t *Transformer) billing(ctx context.Context, tx *sqlx.Tx, _ Scope, c *Counters) error {
	var rows []rawBilling
	if err := selectRaw(ctx, tx, &rows, definition(domain.FamilyBilling), ""); err != nil {
		return err
	}
	if err := upsertResolved(ctx, tx, rows, projectBilling, billingSpec, c, t.maxErrors); err != nil {
		return err
	}
	return refreshUoMConversion(ctx, tx)
}

func (t *Transformer) production(ctx context.Context, tx *sqlx.Tx, _ Scope, c *Counters) error {
	var rows []rawProduction
	if err := selectRaw(ctx, tx, &rows, definition(domain.FamilyProduction), ""); err != nil {
		return err
	}
	return upsertResolved(ctx, tx, rows, projectProduction, productionSpec, c, t.maxErrors)
}

func (t *Transformer) delivery(ctx context.Context, tx *sqlx.Tx, _ Scope, c *Counters) error {
	var rows []rawDelivery
	if err := selectRaw(ctx, tx, &rows, definition(domain.FamilyDelivery), ""); err != nil {
		return err
	}
	return upsertResolved(ctx, tx, rows, projectDelivery, deliverySpec, c, t.maxErrors)
}

func (t *Transformer) targets(ctx context.Context, tx *sqlx.Tx, _ Scope, c *Counters) error {
	var rows []rawTarget
	if err := selectRaw(ctx, tx, &rows, definition(domain.FamilyTargets), ""); err != nil {
		return err
	}
	return upsertResolved(ctx, tx, rows, projectTarget, targetSpec, c, t.maxErrors)
}

func (t *Transformer) arAging(ctx context.Context, tx *sqlx.Tx, scope Scope, c *Counters) error {
	snapshot := scope.SnapshotDate
	if snapshot.IsZero() {
		var latest sql.NullTime
		if err := tx.GetContext(ctx, &latest, `SELECT MAX(snapshot_date) FROM raw_ar_aging`); err != nil {
			return postgres.WrapErr("latest ar snapshot", err)
		}
		if !latest.Valid {
			return nil
		}
		snapshot = latest.Time
	}

	var rows []rawARAging
	if err := selectRaw(ctx, tx, &rows, definition(domain.FamilyARAging), "snapshot_date = $1", snapshot); err != nil {
		return err
	}
	return upsertResolved(ctx, tx, rows, projectARAging, arAgingSpec, c, t.maxErrors)
}

func (t *Transformer) purchaseOrders(ctx context.Context, tx *sqlx.Tx, _ Scope, c *Counters) error {
	var rows []rawPurchaseOrder
	if err := selectRaw(ctx, tx, &rows, definition(domain.FamilyPurchaseOrders), ""); err != nil {
		return err
	}
	c.Selected = len(rows)
	facts, errs := aggregatePurchaseOrders(rows, t.rules.MTOPrefix)
	for _, err := range errs {
		c.skip(t.maxErrors, err)
	}
	res, err := postgres.UpsertFacts(ctx, tx, purchaseOrderSpec, facts)
	if err != nil {
		return err
	}
	c.apply(res)
	return nil
}

func (t *Transformer) salesHierarchy(ctx context.Context, tx *sqlx.Tx, _ Scope, c *Counters) error {
	var rows []rawSalesHierarchy
	if err := selectRaw(ctx, tx, &rows, definition(domain.FamilySalesHierarchy), ""); err != nil {
		return err
	}
	if err := upsertResolved(ctx, tx, rows, projectMaterial, materialSpec, c, t.maxErrors); err != nil {
		return err
	}
	return upsertHierarchy(ctx, tx, hierarchyNodes(rows))
}
