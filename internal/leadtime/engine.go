// Package leadtime derives per-batch lead-time timelines from production,
// movement, purchase order and delivery facts.
package leadtime

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/rowhash"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
)

// Inputs is everything Compute reads. PODates holds one entry per purchase
// order fact; a nil date still marks the order as known.
type Inputs struct {
	Orders     []domain.FactProduction
	Movements  map[string][]Movement
	PODates    map[string]*time.Time
	DeliveryGI map[string]*time.Time
}

// Compute builds one timeline per production order that has a batch.
func Compute(in Inputs, rules schema.Rules) []domain.LeadTime {
	out := make([]domain.LeadTime, 0, len(in.Orders))
	for _, o := range in.Orders {
		batch := strings.TrimSpace(o.Batch)
		if batch == "" {
			continue
		}
		out = append(out, timeline(o, in.Movements[batch], in, rules))
	}
	return out
}

func timeline(o domain.FactProduction, movs []Movement, in Inputs, rules schema.Rules) domain.LeadTime {
	lt := domain.LeadTime{
		OrderNumber:  o.OrderNumber,
		Batch:        o.Batch,
		MaterialCode: o.MaterialCode,
		PlantCode:    o.PlantCode,
		Category:     domain.CategoryMTS,
		ReleaseDate:  o.ReleaseDate,
		FinishDate:   o.FinishDate,
	}

	dc := NetBatch(movs, int64(rules.DistributionPlant))
	if r := dc.FirstReceipt(); r != nil {
		lt.ReceiptAt = timePtr(r.PostedAt)
	}
	issue := dc.FirstIssue()
	if issue != nil {
		lt.IssueAt = timePtr(issue.PostedAt)
	}

	if po, ok := salesOrder(movs, rules.MTOPrefix, in.PODates); ok {
		lt.Category = domain.CategoryMTO
		lt.PONumber = po
		lt.PODate = in.PODates[po]
		if issue != nil && issue.Reference != "" {
			lt.DeliveryNumber = issue.Reference
			lt.DeliveryGIDate = in.DeliveryGI[issue.Reference]
		}
	}

	lt.ProductionDays = days(lt.ReleaseDate, lt.FinishDate)
	lt.TransitDays = days(lt.FinishDate, lt.ReceiptAt)
	lt.StorageDays = days(lt.ReceiptAt, lt.IssueAt)
	stages := []*int{lt.ProductionDays, lt.TransitDays, lt.StorageDays}
	if lt.Category == domain.CategoryMTO {
		lt.PreparationDays = days(lt.PODate, lt.ReleaseDate)
		lt.DeliveryDays = days(lt.IssueAt, lt.DeliveryGIDate)
		stages = append(stages, lt.PreparationDays, lt.DeliveryDays)
	}
	lt.TotalDays = sum(stages)
	lt.TargetDays = rules.TargetDays(lt.Category == domain.CategoryMTO)
	lt.Status = Status(lt.TotalDays, lt.TargetDays, rules.Tolerance)
	lt.RowHash = fingerprint(lt)
	return lt
}

// salesOrder finds the first netted goods receipt of the batch, at any
// plant, that references a known make-to-order purchase order.
func salesOrder(movs []Movement, prefix string, pos map[string]*time.Time) (string, bool) {
	if prefix == "" {
		return "", false
	}
	byPlant := map[int64][]Movement{}
	for _, m := range movs {
		byPlant[m.Plant] = append(byPlant[m.Plant], m)
	}
	var receipts []Movement
	for _, pm := range byPlant {
		receipts = append(receipts, Net(pm, schema.MvtGoodsReceipt, schema.MvtGoodsReceiptReversal)...)
	}
	for _, r := range arrival(receipts) {
		po := strings.TrimSpace(r.PurchaseOrder)
		if !strings.HasPrefix(po, prefix) {
			continue
		}
		if _, ok := pos[po]; ok {
			return po, true
		}
	}
	return "", false
}

// Status grades a total against its target. Totals up to target are on time,
// up to target*(1+tolerance) delayed, anything longer critical.
func Status(total *int, target int, tolerance decimal.Decimal) domain.LeadTimeStatus {
	if total == nil {
		return domain.StatusUnknown
	}
	t := decimal.NewFromInt(int64(*total))
	limit := decimal.NewFromInt(int64(target))
	switch {
	case t.LessThanOrEqual(limit):
		return domain.StatusOnTime
	case t.LessThanOrEqual(limit.Mul(one.Add(tolerance))):
		return domain.StatusDelayed
	}
	return domain.StatusCritical
}

// days counts whole calendar days from a to b; nil when either is missing.
func days(a, b *time.Time) *int {
	if a == nil || b == nil {
		return nil
	}
	n := int(dateOf(*b).Sub(dateOf(*a)).Hours() / 24)
	return &n
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sum(stages []*int) *int {
	total := 0
	for _, s := range stages {
		if s == nil {
			return nil
		}
		total += *s
	}
	return &total
}

func timePtr(t time.Time) *time.Time { return &t }

func fingerprint(lt domain.LeadTime) string {
	values := []string{
		lt.MaterialCode, strconv.FormatInt(lt.PlantCode, 10), string(lt.Category), lt.PONumber,
		fmtTime(lt.PODate), fmtTime(lt.ReleaseDate), fmtTime(lt.FinishDate), fmtTime(lt.ReceiptAt),
		fmtTime(lt.IssueAt), lt.DeliveryNumber, fmtTime(lt.DeliveryGIDate),
		fmtInt(lt.PreparationDays), fmtInt(lt.ProductionDays), fmtInt(lt.TransitDays),
		fmtInt(lt.StorageDays), fmtInt(lt.DeliveryDays), fmtInt(lt.TotalDays),
		strconv.Itoa(lt.TargetDays), string(lt.Status),
	}
	pairs := make([]rowhash.Pair, len(values))
	for i, v := range values {
		pairs[i] = rowhash.Pair{Name: strconv.Itoa(i), Value: v}
	}
	return rowhash.Hash(pairs)
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return rowhash.FormatDateTime(*t)
}

func fmtInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// Summarize counts timelines per status.
func Summarize(lts []domain.LeadTime) map[domain.LeadTimeStatus]int {
	out := map[domain.LeadTimeStatus]int{}
	for _, lt := range lts {
		out[lt.Status]++
	}
	return out
}

// SortByBatch orders timelines deterministically for writes.
func SortByBatch(lts []domain.LeadTime) {
	sort.Slice(lts, func(i, j int) bool {
		if lts[i].Batch != lts[j].Batch {
			return lts[i].Batch < lts[j].Batch
		}
		return lts[i].OrderNumber < lts[j].OrderNumber
	})
}
