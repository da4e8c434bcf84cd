package leadtime

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/repository/postgres/pgtest"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	factory = 1201
	dc      = 1401
)

var seq int64

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func mv(typ int, plant int64, posted string, qty string) Movement {
	seq++
	m := Movement{ID: seq, Type: typ, Plant: plant, Batch: "B1", PostedAt: at(posted)}
	if qty != "" {
		m.Qty = decimal.NewNullDecimal(decimal.RequireFromString(qty))
	}
	return m
}

func ids(movs []Movement) []int64 {
	out := make([]int64, len(movs))
	for i, m := range movs {
		out[i] = m.ID
	}
	return out
}

func TestNet_ReversalCancelsMostRecent(t *testing.T) {
	a := mv(601, dc, "2025-01-01 08:00", "5")
	b := mv(601, dc, "2025-01-02 08:00", "5")
	r := mv(602, dc, "2025-01-03 08:00", "-5")

	got := Net([]Movement{r, b, a}, 601, 602)
	assert.Equal(t, []int64{a.ID}, ids(got))
}

func TestNet_ReversalBeforeAnyForwardIsDropped(t *testing.T) {
	r := mv(102, dc, "2025-01-01 08:00", "")
	a := mv(101, dc, "2025-01-02 08:00", "")
	assert.Equal(t, []int64{a.ID}, ids(Net([]Movement{r, a}, 101, 102)))
}

func TestNet_SameTimestampUsesLoadOrder(t *testing.T) {
	a := mv(101, dc, "2025-01-01 08:00", "1")
	b := mv(101, dc, "2025-01-01 08:00", "1")
	r := mv(102, dc, "2025-01-01 08:00", "1")
	assert.Equal(t, []int64{a.ID}, ids(Net([]Movement{b, r, a}, 101, 102)))
}

func TestNet_FullyReversed(t *testing.T) {
	a := mv(101, dc, "2025-01-01 08:00", "1")
	r := mv(102, dc, "2025-01-02 08:00", "1")
	assert.Empty(t, Net([]Movement{a, r}, 101, 102))
}

func TestValidIssues(t *testing.T) {
	receipt := mv(101, dc, "2025-01-05 08:00", "10")
	early := mv(601, dc, "2025-01-04 08:00", "10")
	first := mv(601, dc, "2025-01-06 08:00", "10")
	over := mv(601, dc, "2025-01-07 08:00", "1")

	valid := ValidIssues([]Movement{receipt}, []Movement{early, first, over})
	assert.Equal(t, []int64{first.ID}, ids(valid))
}

func TestValidIssues_PartialIssuesUntilStockExhausted(t *testing.T) {
	receipt := mv(101, dc, "2025-01-05 08:00", "10")
	a := mv(601, dc, "2025-01-06 08:00", "4")
	b := mv(601, dc, "2025-01-06 09:00", "4")
	c := mv(601, dc, "2025-01-06 10:00", "4")
	d := mv(601, dc, "2025-01-06 11:00", "4")

	valid := ValidIssues([]Movement{receipt}, []Movement{a, b, c, d})
	// 10 > 0, 10 > 4, 10 > 8, then 10 > 12 fails
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, ids(valid))
}

func TestValidIssues_MissingQuantityCountsAsOne(t *testing.T) {
	receipt := mv(101, dc, "2025-01-05 08:00", "")
	a := mv(601, dc, "2025-01-06 08:00", "")
	b := mv(601, dc, "2025-01-06 09:00", "")
	assert.Equal(t, []int64{a.ID}, ids(ValidIssues([]Movement{receipt}, []Movement{a, b})))
}

func TestNetBatch_IgnoresOtherPlants(t *testing.T) {
	fr := mv(101, factory, "2025-01-01 08:00", "5")
	r := mv(101, dc, "2025-01-03 08:00", "5")
	i := mv(601, dc, "2025-01-04 08:00", "5")
	fi := mv(601, factory, "2025-01-02 08:00", "5")

	tl := NetBatch([]Movement{fr, r, i, fi}, dc)
	require.NotNil(t, tl.FirstReceipt())
	require.NotNil(t, tl.FirstIssue())
	assert.Equal(t, r.ID, tl.FirstReceipt().ID)
	assert.Equal(t, i.ID, tl.FirstIssue().ID)

	empty := NetBatch(nil, dc)
	assert.Nil(t, empty.FirstReceipt())
	assert.Nil(t, empty.FirstIssue())
}

func TestStatus(t *testing.T) {
	tol := decimal.RequireFromString("0.2")
	n := func(v int) *int { return &v }

	assert.Equal(t, domain.StatusUnknown, Status(nil, 14, tol))
	assert.Equal(t, domain.StatusOnTime, Status(n(0), 14, tol))
	assert.Equal(t, domain.StatusOnTime, Status(n(14), 14, tol))
	assert.Equal(t, domain.StatusDelayed, Status(n(15), 14, tol))
	// 14 * 1.2 = 16.8
	assert.Equal(t, domain.StatusDelayed, Status(n(16), 14, tol))
	assert.Equal(t, domain.StatusCritical, Status(n(17), 14, tol))
	// 21 * 1.2 = 25.2
	assert.Equal(t, domain.StatusDelayed, Status(n(25), 21, tol))
	assert.Equal(t, domain.StatusCritical, Status(n(26), 21, tol))
}

func order(batch string) domain.FactProduction {
	return domain.FactProduction{
		OrderNumber:  "100" + batch,
		Batch:        batch,
		PlantCode:    factory,
		MaterialCode: "FG-1",
		ReleaseDate:  day("2025-01-01"),
		FinishDate:   day("2025-01-04"),
	}
}

func TestCompute_MTS(t *testing.T) {
	movs := []Movement{
		mv(101, dc, "2025-01-06 10:00", "10"),
		mv(601, dc, "2025-01-10 15:30", "10"),
	}
	lts := Compute(Inputs{
		Orders:    []domain.FactProduction{order("B1")},
		Movements: map[string][]Movement{"B1": movs},
	}, schema.DefaultRules())
	require.Len(t, lts, 1)

	lt := lts[0]
	assert.Equal(t, domain.CategoryMTS, lt.Category)
	assert.Equal(t, 3, *lt.ProductionDays)
	assert.Equal(t, 2, *lt.TransitDays)
	assert.Equal(t, 4, *lt.StorageDays)
	assert.Nil(t, lt.PreparationDays)
	assert.Nil(t, lt.DeliveryDays)
	assert.Equal(t, 9, *lt.TotalDays)
	assert.Equal(t, 14, lt.TargetDays)
	assert.Equal(t, domain.StatusOnTime, lt.Status)
	assert.Len(t, lt.RowHash, 32)
}

func TestCompute_MTO(t *testing.T) {
	receipt := mv(101, dc, "2025-01-06 10:00", "10")
	receipt.PurchaseOrder = "4400123"
	issue := mv(601, dc, "2025-01-20 09:00", "10")
	issue.Reference = "80001"

	lts := Compute(Inputs{
		Orders:     []domain.FactProduction{order("B1")},
		Movements:  map[string][]Movement{"B1": {receipt, issue}},
		PODates:    map[string]*time.Time{"4400123": day("2024-12-28")},
		DeliveryGI: map[string]*time.Time{"80001": day("2025-01-22")},
	}, schema.DefaultRules())
	require.Len(t, lts, 1)

	lt := lts[0]
	assert.Equal(t, domain.CategoryMTO, lt.Category)
	assert.Equal(t, "4400123", lt.PONumber)
	assert.Equal(t, "80001", lt.DeliveryNumber)
	assert.Equal(t, 4, *lt.PreparationDays)
	assert.Equal(t, 3, *lt.ProductionDays)
	assert.Equal(t, 2, *lt.TransitDays)
	assert.Equal(t, 14, *lt.StorageDays)
	assert.Equal(t, 2, *lt.DeliveryDays)
	assert.Equal(t, 25, *lt.TotalDays)
	assert.Equal(t, 21, lt.TargetDays)
	assert.Equal(t, domain.StatusDelayed, lt.Status)
}

func TestCompute_PrefixWithoutPurchaseOrderFactStaysMTS(t *testing.T) {
	receipt := mv(101, dc, "2025-01-06 10:00", "10")
	receipt.PurchaseOrder = "4400999"

	lts := Compute(Inputs{
		Orders:    []domain.FactProduction{order("B1")},
		Movements: map[string][]Movement{"B1": {receipt}},
	}, schema.DefaultRules())
	require.Len(t, lts, 1)
	assert.Equal(t, domain.CategoryMTS, lts[0].Category)
	assert.Empty(t, lts[0].PONumber)
}

func TestCompute_ReversedReceiptIsNotMTO(t *testing.T) {
	receipt := mv(101, factory, "2025-01-06 10:00", "10")
	receipt.PurchaseOrder = "4400123"
	reversal := mv(102, factory, "2025-01-06 11:00", "10")

	lts := Compute(Inputs{
		Orders:    []domain.FactProduction{order("B1")},
		Movements: map[string][]Movement{"B1": {receipt, reversal}},
		PODates:   map[string]*time.Time{"4400123": day("2024-12-28")},
	}, schema.DefaultRules())
	assert.Equal(t, domain.CategoryMTS, lts[0].Category)
}

func TestCompute_MissingStageMakesTotalUnknown(t *testing.T) {
	lts := Compute(Inputs{
		Orders:    []domain.FactProduction{order("B1")},
		Movements: map[string][]Movement{"B1": {mv(101, dc, "2025-01-06 10:00", "10")}},
	}, schema.DefaultRules())
	lt := lts[0]
	assert.NotNil(t, lt.TransitDays)
	assert.Nil(t, lt.StorageDays)
	assert.Nil(t, lt.TotalDays)
	assert.Equal(t, domain.StatusUnknown, lt.Status)
}

func TestCompute_StageSumEqualsTotal(t *testing.T) {
	receipt := mv(101, dc, "2025-02-01 23:59", "3")
	issue := mv(601, dc, "2025-02-28 00:01", "3")
	lts := Compute(Inputs{
		Orders:    []domain.FactProduction{order("B1")},
		Movements: map[string][]Movement{"B1": {receipt, issue}},
	}, schema.DefaultRules())
	lt := lts[0]
	require.NotNil(t, lt.TotalDays)
	assert.Equal(t, *lt.ProductionDays+*lt.TransitDays+*lt.StorageDays, *lt.TotalDays)
	assert.Equal(t, domain.StatusCritical, lt.Status)
}

func TestCompute_SkipsOrdersWithoutBatch(t *testing.T) {
	lts := Compute(Inputs{Orders: []domain.FactProduction{order("")}}, schema.DefaultRules())
	assert.Empty(t, lts)
}

func TestCompute_DeterministicHash(t *testing.T) {
	in := Inputs{
		Orders:    []domain.FactProduction{order("B1")},
		Movements: map[string][]Movement{"B1": {mv(101, dc, "2025-01-06 10:00", "10")}},
	}
	a := Compute(in, schema.DefaultRules())
	b := Compute(in, schema.DefaultRules())
	assert.Equal(t, a[0].RowHash, b[0].RowHash)
}

func TestGroupByBatch(t *testing.T) {
	a := mv(101, dc, "2025-01-01 08:00", "1")
	b := mv(101, dc, "2025-01-01 08:00", "1")
	b.Batch = "B2"
	c := mv(101, dc, "2025-01-01 08:00", "1")
	c.Batch = ""
	g := GroupByBatch([]Movement{a, b, c})
	assert.Len(t, g, 2)
	assert.Len(t, g["B1"], 1)
	assert.Len(t, g["B2"], 1)
}

func TestRefreshIsIdempotent(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	token := pgtest.Token()
	order, batch := "ORD-"+token[:10], "B"+token[:12]

	_, err := db.ExecContext(ctx, `
		INSERT INTO fact_production (order_number, batch, plant_code, material_code, release_date, finish_date,
		                             order_qty, delivered_qty, row_hash)
		VALUES ($1, $2, $3, 'FG-1', '2025-01-02', '2025-01-04', 100, 100, $4)`,
		order, batch, factory, token)
	require.NoError(t, err)
	pgtest.Load(t, db, domain.FamilyMovements, pgtest.Upload(t, db, domain.FamilyMovements), nil,
		pgtest.Row{"posting_at": at("2025-01-05 08:00"), "movement_type": int64(schema.MvtGoodsReceipt),
			"plant": int64(dc), "material": "FG-1", "batch": batch, "qty": decimal.NewFromInt(100)},
		pgtest.Row{"posting_at": at("2025-01-07 08:00"), "movement_type": int64(schema.MvtGoodsIssue),
			"plant": int64(dc), "material": "FG-1", "batch": batch, "qty": decimal.NewFromInt(100)})

	r := NewRefresher(db, schema.DefaultRules())
	_, err = r.Refresh(ctx)
	require.NoError(t, err)

	again, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Inserted)
	assert.Zero(t, again.Updated)
	assert.Zero(t, again.Removed)

	var lt struct {
		ReceiptAt *time.Time `db:"receipt_at"`
		IssueAt   *time.Time `db:"issue_at"`
	}
	require.NoError(t, db.GetContext(ctx, &lt,
		`SELECT receipt_at, issue_at FROM fact_lead_time WHERE order_number = $1 AND batch = $2`, order, batch))
	require.NotNil(t, lt.ReceiptAt)
	require.NotNil(t, lt.IssueAt)
	assert.WithinDuration(t, at("2025-01-07 08:00"), *lt.IssueAt, time.Second)
}
