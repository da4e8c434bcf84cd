package leadtime

import (
	"sort"
	"time"

	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
)

// Movement is one movement log row reduced to the fields the timeline needs.
type Movement struct {
	ID            int64               `db:"id"`
	PostedAt      time.Time           `db:"posting_at"`
	Type          int                 `db:"movement_type"`
	Plant         int64               `db:"plant"`
	Material      string              `db:"material"`
	MaterialDesc  string              `db:"material_desc"`
	Batch         string              `db:"batch"`
	Qty           decimal.NullDecimal `db:"qty"`
	Unit          string              `db:"unit"`
	PurchaseOrder string              `db:"purchase_order"`
	Reference     string              `db:"reference"`
}

var one = decimal.NewFromInt(1)

// Quantity is the unsigned movement quantity; a missing quantity counts as one.
func (m Movement) Quantity() decimal.Decimal {
	if !m.Qty.Valid {
		return one
	}
	return m.Qty.Decimal.Abs()
}

// arrival returns movs ordered by posting time, then load order.
func arrival(movs []Movement) []Movement {
	out := append([]Movement(nil), movs...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.Before(out[j].PostedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Net cancels every reversal against the most recent uncancelled forward
// movement of its pair and returns the surviving forward movements in arrival
// order. A reversal with nothing left to cancel is dropped.
func Net(movs []Movement, forward, reversal int) []Movement {
	var stack []Movement
	for _, m := range arrival(movs) {
		switch m.Type {
		case forward:
			stack = append(stack, m)
		case reversal:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}

// ValidIssues keeps the issues that were covered by stock: an issue is valid
// when the receipts posted up to its time exceed the valid issues before it.
// Both inputs must already be netted and in arrival order.
func ValidIssues(receipts, issues []Movement) []Movement {
	var valid []Movement
	issued := decimal.Zero
	for _, is := range issues {
		received := decimal.Zero
		for _, r := range receipts {
			if r.PostedAt.After(is.PostedAt) {
				break
			}
			received = received.Add(r.Quantity())
		}
		if received.GreaterThan(issued) {
			valid = append(valid, is)
			issued = issued.Add(is.Quantity())
		}
	}
	return valid
}

// Timeline is a batch's netted receipts and valid issues at one plant.
type Timeline struct {
	Receipts []Movement
	Issues   []Movement
}

func (t Timeline) FirstReceipt() *Movement {
	if len(t.Receipts) == 0 {
		return nil
	}
	return &t.Receipts[0]
}

func (t Timeline) FirstIssue() *Movement {
	if len(t.Issues) == 0 {
		return nil
	}
	return &t.Issues[0]
}

// NetBatch builds the timeline of one batch's movements at plant. Plants keep
// separate stock, so other plants' movements are ignored.
func NetBatch(movs []Movement, plant int64) Timeline {
	var at []Movement
	for _, m := range movs {
		if m.Plant == plant {
			at = append(at, m)
		}
	}
	receipts := Net(at, schema.MvtGoodsReceipt, schema.MvtGoodsReceiptReversal)
	issues := Net(at, schema.MvtGoodsIssue, schema.MvtGoodsIssueReversal)
	return Timeline{Receipts: receipts, Issues: ValidIssues(receipts, issues)}
}

// GroupByBatch indexes movements by batch, dropping those without one.
func GroupByBatch(movs []Movement) map[string][]Movement {
	out := make(map[string][]Movement)
	for _, m := range movs {
		if m.Batch == "" {
			continue
		}
		out[m.Batch] = append(out[m.Batch], m)
	}
	return out
}
