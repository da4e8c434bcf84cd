// Package alerts raises and resolves batch alerts from the movement log and
// production facts.
package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/leadtime"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Key identifies an alert row.
type Key struct {
	Batch string
	Type  domain.AlertType
}

func keyOf(a domain.Alert) Key { return Key{Batch: a.Batch, Type: a.AlertType} }

// Finding is the evaluated state of one alert condition. An inactive finding
// clears any active alert at ClearedAt. A held finding is still pending and
// leaves an existing alert as it is.
type Finding struct {
	Active    bool
	Hold      bool
	Alert     domain.Alert
	ClearedAt time.Time
}

// StuckSeverity maps hours since receipt onto the configured ladder. ok is
// false below the first threshold.
func StuckSeverity(hours decimal.Decimal, rules schema.Rules) (domain.Severity, bool) {
	h := func(d time.Duration) decimal.Decimal { return decimal.NewFromFloat(d.Hours()) }
	switch {
	case hours.GreaterThanOrEqual(h(rules.StuckCritical)):
		return domain.SeverityCritical, true
	case hours.GreaterThanOrEqual(h(rules.StuckHigh)):
		return domain.SeverityHigh, true
	case hours.GreaterThanOrEqual(h(rules.StuckMedium)):
		return domain.SeverityMedium, true
	}
	return "", false
}

// YieldSeverity grades a yield already known to be below threshold.
func YieldSeverity(pct decimal.Decimal, rules schema.Rules) domain.Severity {
	switch {
	case pct.LessThan(rules.LowYieldCrit):
		return domain.SeverityCritical
	case pct.LessThan(rules.LowYieldHigh):
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

// Stuck evaluates every batch with movements at the distribution plant. A
// batch whose net receipt has a valid issue clears at that issue's time.
func Stuck(movements map[string][]leadtime.Movement, orders map[string]domain.FactProduction, rules schema.Rules, now time.Time) map[Key]Finding {
	out := map[Key]Finding{}
	plant := int64(rules.DistributionPlant)
	for batch, movs := range movements {
		tl := leadtime.NetBatch(movs, plant)
		receipt := tl.FirstReceipt()
		if receipt == nil {
			continue
		}
		k := Key{Batch: batch, Type: domain.AlertStuckInTransit}
		if issue := tl.FirstIssue(); issue != nil {
			out[k] = Finding{ClearedAt: issue.PostedAt}
			continue
		}

		hours := decimal.NewFromFloat(now.Sub(receipt.PostedAt).Hours()).Round(2)
		severity, ok := StuckSeverity(hours, rules)
		if !ok {
			// A reversal can move the net receipt forward; the batch is
			// still in transit, just not for long enough.
			out[k] = Finding{Hold: true}
			continue
		}
		a := domain.Alert{
			Batch:        batch,
			AlertType:    domain.AlertStuckInTransit,
			Severity:     severity,
			Status:       domain.AlertActive,
			MaterialCode: receipt.Material,
			PlantCode:    plant,
			ReceiptAt:    &receipt.PostedAt,
			StuckHours:   decimal.NewNullDecimal(hours),
			Message: fmt.Sprintf("Batch %s received at plant %d on %s has no goods issue after %s hours",
				batch, plant, receipt.PostedAt.Format("2006-01-02 15:04"), hours.StringFixed(2)),
		}
		if o, ok := orders[batch]; ok {
			a.OrderNumber = o.OrderNumber
			if a.MaterialCode == "" {
				a.MaterialCode = o.MaterialCode
			}
		}
		out[k] = Finding{Active: true, Alert: a}
	}
	return out
}

// LowYield evaluates finished production orders. Orders without a batch are
// keyed by order number.
func LowYield(orders []domain.FactProduction, rules schema.Rules, now time.Time) map[Key]Finding {
	out := map[Key]Finding{}
	for _, o := range orders {
		if o.FinishDate == nil || !o.OrderQty.Valid || !o.OrderQty.Decimal.IsPositive() {
			continue
		}
		delivered := decimal.Zero
		if o.DeliveredQty.Valid {
			delivered = o.DeliveredQty.Decimal
		}
		pct := delivered.Div(o.OrderQty.Decimal).Mul(hundred).Round(2)

		batch := strings.TrimSpace(o.Batch)
		if batch == "" {
			batch = o.OrderNumber
		}
		k := Key{Batch: batch, Type: domain.AlertLowYield}
		if !pct.LessThan(rules.LowYieldPercent) {
			out[k] = Finding{ClearedAt: now}
			continue
		}
		out[k] = Finding{Active: true, Alert: domain.Alert{
			Batch:        batch,
			AlertType:    domain.AlertLowYield,
			Severity:     YieldSeverity(pct, rules),
			Status:       domain.AlertActive,
			MaterialCode: o.MaterialCode,
			PlantCode:    o.PlantCode,
			OrderNumber:  o.OrderNumber,
			YieldPct:     decimal.NewNullDecimal(pct),
			Message: fmt.Sprintf("Order %s yield %s%% below %s%% (%s of %s %s delivered)",
				o.OrderNumber, pct.StringFixed(2), rules.LowYieldPercent.String(),
				delivered.String(), o.OrderQty.Decimal.String(), o.UoM),
		}}
	}
	return out
}

// PairLowYield evaluates bulk-to-packed yields. Findings are keyed by the bulk
// batch and take precedence over order yield for the same batch.
func PairLowYield(pairs []leadtime.PairYield, rules schema.Rules, now time.Time) map[Key]Finding {
	out := map[Key]Finding{}
	for _, y := range pairs {
		k := Key{Batch: y.P02Batch, Type: domain.AlertLowYield}
		if !y.YieldPct.LessThan(rules.LowYieldPercent) {
			out[k] = Finding{ClearedAt: now}
			continue
		}
		out[k] = Finding{Active: true, Alert: domain.Alert{
			Batch:        y.P02Batch,
			AlertType:    domain.AlertLowYield,
			Severity:     YieldSeverity(y.YieldPct, rules),
			Status:       domain.AlertActive,
			MaterialCode: y.P01Material,
			PlantCode:    int64(rules.FactoryPlant),
			YieldPct:     decimal.NewNullDecimal(y.YieldPct),
			Message: fmt.Sprintf("P02 batch %s packed as %s yield %s%% (loss %s KG) %s",
				y.P02Batch, y.P01Batch, y.YieldPct.StringFixed(2), y.LossKg.StringFixed(3), y.P02Desc),
		}}
	}
	return out
}

// Plan is the set of alert rows to write.
type Plan struct {
	Writes   []domain.Alert
	Raised   int
	Updated  int
	Resolved int
	Active   int
}

// Reconcile merges findings into the existing alert rows. evaluated lists the
// alert types the findings cover; existing alerts of other types are left
// alone. Active alerts with no finding are resolved at now; held findings
// write nothing.
func Reconcile(findings map[Key]Finding, existing []domain.Alert, evaluated []domain.AlertType, now time.Time) Plan {
	var p Plan
	covered := map[domain.AlertType]bool{}
	for _, t := range evaluated {
		covered[t] = true
	}
	current := make(map[Key]domain.Alert, len(existing))
	for _, a := range existing {
		current[keyOf(a)] = a
	}

	for k, f := range findings {
		if f.Hold {
			continue
		}
		prev, exists := current[k]
		switch {
		case f.Active && !exists:
			a := f.Alert
			a.DetectedAt = now
			a.UpdatedAt = now
			p.Writes = append(p.Writes, a)
			p.Raised++
		case f.Active && prev.Status == domain.AlertResolved:
			a := f.Alert
			a.ID = prev.ID
			a.DetectedAt = now
			a.UpdatedAt = now
			p.Writes = append(p.Writes, a)
			p.Raised++
		case f.Active:
			a := f.Alert
			a.ID = prev.ID
			a.DetectedAt = prev.DetectedAt
			a.UpdatedAt = now
			p.Writes = append(p.Writes, a)
			p.Updated++
		case exists && prev.Status == domain.AlertActive:
			p.Writes = append(p.Writes, resolved(prev, f.ClearedAt, now))
			p.Resolved++
		}
	}

	for k, prev := range current {
		if _, ok := findings[k]; ok || !covered[k.Type] || prev.Status != domain.AlertActive {
			continue
		}
		p.Writes = append(p.Writes, resolved(prev, now, now))
		p.Resolved++
	}

	active := 0
	for _, a := range existing {
		if a.Status == domain.AlertActive {
			active++
		}
	}
	p.Active = active + p.Raised - p.Resolved

	sort.Slice(p.Writes, func(i, j int) bool {
		if p.Writes[i].AlertType != p.Writes[j].AlertType {
			return p.Writes[i].AlertType < p.Writes[j].AlertType
		}
		return p.Writes[i].Batch < p.Writes[j].Batch
	})
	return p
}

func resolved(a domain.Alert, at, now time.Time) domain.Alert {
	a.Status = domain.AlertResolved
	a.ResolvedAt = &at
	a.UpdatedAt = now
	return a
}
