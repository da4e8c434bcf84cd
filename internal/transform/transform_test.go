package transform

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/repository/postgres/pgtest"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func plant(n int64) *int64 { return &n }

func TestSemester(t *testing.T) {
	assert.Equal(t, 1, Semester(date("2025-01-01")))
	assert.Equal(t, 1, Semester(date("2025-06-30")))
	assert.Equal(t, 2, Semester(date("2025-07-01")))
	assert.Equal(t, 2, Semester(date("2025-12-31")))
}

func TestProjectBilling(t *testing.T) {
	r := rawBilling{
		rawMeta:         rawMeta{ID: 7, UploadID: 1},
		BillingDocument: " 9000001 ",
		BillingItem:     10,
		BillingDate:     date("2025-08-14"),
		DistChannel:     "13",
		Material:        "MAT-1",
		BillingQty:      dec("4"),
		NetValue:        dec("1200.50"),
	}
	c, err := projectBilling(r)
	require.NoError(t, err)
	assert.Equal(t, "9000001|10", c.key)
	assert.Equal(t, "9000001", c.fact.BillingDocument)
	assert.Equal(t, 2, c.fact.Semester)
	assert.Equal(t, 2025, c.fact.Year)
	assert.Equal(t, "Retails", c.fact.Division)
	assert.Equal(t, "MAT-1", c.fact.MaterialCode)
	assert.Len(t, c.fact.RowHash, 32)
	assert.Equal(t, c.hash, c.fact.RowHash)

	r.BillingDocument = "  "
	_, err = projectBilling(r)
	assert.ErrorContains(t, err, "billing_document")
}

func TestProjectBilling_UnknownChannel(t *testing.T) {
	c, err := projectBilling(rawBilling{BillingDocument: "1", BillingDate: date("2025-02-01"), DistChannel: "99"})
	require.NoError(t, err)
	assert.Equal(t, schema.DivisionOther, c.fact.Division)
	assert.Equal(t, 1, c.fact.Semester)
}

func TestProjectBilling_HashTracksContent(t *testing.T) {
	base := rawBilling{BillingDocument: "1", BillingItem: 1, BillingDate: date("2025-02-01"), NetValue: dec("10")}
	a, err := projectBilling(base)
	require.NoError(t, err)

	// raw bookkeeping does not change the fact content
	moved := base
	moved.rawMeta = rawMeta{ID: 99, UploadID: 5}
	b, err := projectBilling(moved)
	require.NoError(t, err)
	assert.Equal(t, a.hash, b.hash)

	changed := base
	changed.NetValue = dec("11")
	c, err := projectBilling(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a.hash, c.hash)
}

func TestProjectProduction_EmptyBatchIsAKey(t *testing.T) {
	c, err := projectProduction(rawProduction{OrderNumber: "100200", Batch: ""})
	require.NoError(t, err)
	assert.Equal(t, "100200|", c.key)

	_, err = projectProduction(rawProduction{OrderNumber: ""})
	assert.ErrorContains(t, err, "order_number")
}

func TestProjectARAging_KeyIncludesSnapshot(t *testing.T) {
	r := rawARAging{SnapshotDate: date("2025-09-30"), CustomerCode: "C1", DocumentNumber: "D1", DistChannel: "11"}
	c, err := projectARAging(r)
	require.NoError(t, err)
	assert.Equal(t, "2025-09-30|C1|D1", c.key)
	assert.Equal(t, "Industry", c.fact.Division)
}

func TestProjectTarget(t *testing.T) {
	c, err := projectTarget(rawTarget{SalesmanName: "Budi", Semester: 1, Year: 2025, TargetAmount: dec("5000")})
	require.NoError(t, err)
	assert.Equal(t, "Budi|1|2025", c.key)

	_, err = projectTarget(rawTarget{})
	assert.Error(t, err)
}

func TestResolve_LatestUploadWins(t *testing.T) {
	cands := []candidate[string]{
		{key: "a", rawID: 1, uploadID: 1, hash: "h1", fact: "old"},
		{key: "b", rawID: 2, uploadID: 1, hash: "h2", fact: "b"},
		{key: "a", rawID: 3, uploadID: 2, hash: "h3", fact: "new"},
	}
	out, err := resolve(cands)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "b"}, out)
}

func TestResolve_SameUploadIdenticalContent(t *testing.T) {
	cands := []candidate[string]{
		{key: "a", rawID: 1, uploadID: 1, hash: "h", fact: "x"},
		{key: "a", rawID: 2, uploadID: 1, hash: "h", fact: "x"},
	}
	out, err := resolve(cands)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out)
}

func TestResolve_DuplicateBusinessKey(t *testing.T) {
	cands := []candidate[string]{
		{key: "a", rawID: 1, uploadID: 1, hash: "h1"},
		{key: "a", rawID: 2, uploadID: 1, hash: "h2"},
	}
	_, err := resolve(cands)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateBusinessKey))
	assert.Contains(t, err.Error(), "raw rows 1 and 2")
}

func TestResolve_DuplicateInSupersededUpload(t *testing.T) {
	cands := []candidate[string]{
		{key: "9001|10", rawID: 1, uploadID: 1, hash: "h1", fact: "u1a"},
		{key: "9001|10", rawID: 2, uploadID: 1, hash: "h2", fact: "u1b"},
		{key: "9001|10", rawID: 3, uploadID: 2, hash: "h3", fact: "u2"},
	}
	out, err := resolve(cands)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, out)
}

func TestResolve_DuplicateInLatestUpload(t *testing.T) {
	cands := []candidate[string]{
		{key: "9001|10", rawID: 1, uploadID: 1, hash: "h1", fact: "u1"},
		{key: "9001|10", rawID: 2, uploadID: 2, hash: "h2", fact: "u2a"},
		{key: "9001|10", rawID: 3, uploadID: 2, hash: "h3", fact: "u2b"},
	}
	_, err := resolve(cands)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateBusinessKey))
	assert.Contains(t, err.Error(), "raw rows 2 and 3 of upload 2")
}

func TestHashOf_Positional(t *testing.T) {
	assert.Equal(t, hashOf("a", ""), hashOf("a", nil))
	assert.NotEqual(t, hashOf("a", "b"), hashOf("b", "a"))
	assert.Equal(t, hashOf(dec("1.50")), hashOf(decimal.NewNullDecimal(decimal.RequireFromString("1.50"))))
	assert.Equal(t, hashOf((*time.Time)(nil)), hashOf(""))
}

func TestAggregatePurchaseOrders(t *testing.T) {
	rows := []rawPurchaseOrder{
		{rawMeta: rawMeta{ID: 1}, PONumber: "4400001", Item: 10, Material: "M1", PODate: datePtr("2025-03-05"),
			DeliveryDate: datePtr("2025-03-20"), QtyOrder: dec("10"), QtyReceipt: dec("4"), DestPlant: plant(1401)},
		{rawMeta: rawMeta{ID: 2}, PONumber: "4400001", Item: 20, Material: "M1", PODate: datePtr("2025-03-01"),
			DeliveryDate: datePtr("2025-03-25"), QtyOrder: dec("5"), SupplyingPlant: plant(1201)},
		{rawMeta: rawMeta{ID: 3}, PONumber: "4500009", Item: 10, Material: "M2", QtyOrder: dec("1")},
		// re-export of item 10 replaces the first row
		{rawMeta: rawMeta{ID: 4}, PONumber: "4400001", Item: 10, Material: "M1", PODate: datePtr("2025-03-05"),
			DeliveryDate: datePtr("2025-03-20"), QtyOrder: dec("12"), QtyReceipt: dec("12"), DestPlant: plant(1401)},
		{rawMeta: rawMeta{ID: 5}, PONumber: "", Item: 10, Material: "M3"},
	}

	facts, errs := aggregatePurchaseOrders(rows, "44")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "po_number")
	require.Len(t, facts, 2)

	po := facts[0]
	assert.Equal(t, "4400001", po.PONumber)
	assert.True(t, po.IsSalesPO)
	assert.Equal(t, 2, po.ItemCount)
	assert.True(t, po.QtyOrder.Equal(decimal.NewFromInt(17)))
	assert.True(t, po.QtyReceipt.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, date("2025-03-01"), *po.PODate)
	assert.Equal(t, date("2025-03-25"), *po.DeliveryDate)
	assert.Equal(t, int64(1201), *po.SupplyingPlant)
	assert.Equal(t, int64(1401), *po.DestPlant)

	other := facts[1]
	assert.False(t, other.IsSalesPO)
	assert.Nil(t, other.PODate)
	assert.NotEqual(t, po.RowHash, other.RowHash)
}

func TestAggregatePurchaseOrders_StableHash(t *testing.T) {
	rows := []rawPurchaseOrder{
		{rawMeta: rawMeta{ID: 1}, PONumber: "P", Item: 20, Material: "M", QtyOrder: dec("1")},
		{rawMeta: rawMeta{ID: 2}, PONumber: "P", Item: 10, Material: "M", QtyOrder: dec("2")},
	}
	a, _ := aggregatePurchaseOrders(rows, "44")
	b, _ := aggregatePurchaseOrders([]rawPurchaseOrder{rows[1], rows[0]}, "44")
	assert.Equal(t, a[0].RowHash, b[0].RowHash)
}

func TestHierarchyNodes(t *testing.T) {
	rows := []rawSalesHierarchy{
		{MaterialCode: "M1", PH1: "A", PH1Desc: "Alpha", PH2: "A1", PH2Desc: ""},
		{MaterialCode: "M2", PH1: "A", PH1Desc: "Alpha Renamed", PH2: "A1", PH2Desc: "Sub"},
		{MaterialCode: "M3", PH1: "B", PH1Desc: "Beta", PH7: "Z"},
	}
	nodes := hierarchyNodes(rows)
	assert.Equal(t, []domain.ProductHierarchyNode{
		{Level: 1, Code: "A", Description: "Alpha Renamed"},
		{Level: 2, Code: "A1", Description: "Sub"},
		{Level: 1, Code: "B", Description: "Beta"},
		{Level: 7, Code: "Z"},
	}, nodes)
}

func TestRawSelectSQL(t *testing.T) {
	def, ok := schema.Lookup(domain.FamilyARAging)
	require.True(t, ok)
	q := rawSelectSQL(def, "snapshot_date = $1")
	assert.True(t, strings.HasPrefix(q, "SELECT id, upload_id, snapshot_date, "))
	assert.Contains(t, q, "COALESCE(customer_code, '') AS customer_code")
	assert.NotContains(t, q, "COALESCE(total_realization")
	assert.Contains(t, q, "FROM raw_ar_aging WHERE snapshot_date = $1 ORDER BY id")

	def, _ = schema.Lookup(domain.FamilyBilling)
	assert.NotContains(t, rawSelectSQL(def, ""), "WHERE")
}

func TestFactSpecsMatchRawFamilies(t *testing.T) {
	for _, f := range schema.Families() {
		tr := &Transformer{}
		_, ok := tr.runner(f.Family)
		assert.True(t, ok, f.Family.String())
	}
	_, ok := (&Transformer{}).runner(domain.FamilyUnknown)
	assert.False(t, ok)
}

func TestTransformRerunWritesNothing(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	name := "salesman-" + pgtest.Token()
	amount := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	pgtest.Load(t, db, domain.FamilyTargets, pgtest.Upload(t, db, domain.FamilyTargets), nil,
		pgtest.Row{"salesman_name": name, "semester": int64(1), "year": int64(2025), "target_amount": amount("100")},
		pgtest.Row{"salesman_name": name, "semester": int64(2), "year": int64(2025), "target_amount": amount("120")})
	pgtest.Load(t, db, domain.FamilyTargets, pgtest.Upload(t, db, domain.FamilyTargets), nil,
		pgtest.Row{"salesman_name": name, "semester": int64(1), "year": int64(2025), "target_amount": amount("150")})

	tr := New(db, schema.DefaultRules(), 0)
	first, err := tr.Transform(ctx, domain.FamilyTargets, Scope{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first.Inserted, 2)

	second, err := tr.Transform(ctx, domain.FamilyTargets, Scope{})
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Zero(t, second.Updated)
	assert.GreaterOrEqual(t, second.Unchanged, 2)

	var got decimal.Decimal
	require.NoError(t, db.GetContext(ctx, &got,
		`SELECT target_amount FROM fact_target WHERE salesman_name = $1 AND semester = 1 AND year = 2025`, name))
	assert.True(t, amount("150").Equal(got), got.String())

	var counts struct {
		Total    int `db:"total"`
		Distinct int `db:"distinct_keys"`
	}
	require.NoError(t, db.GetContext(ctx, &counts,
		`SELECT COUNT(*) AS total, COUNT(DISTINCT (salesman_name, semester, year)) AS distinct_keys FROM fact_target`))
	assert.Equal(t, counts.Distinct, counts.Total)
}

func TestInventoryNetsGoodsReceipts(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	material := "MAT-" + pgtest.Token()
	posted := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	pgtest.Load(t, db, domain.FamilyMovements, pgtest.Upload(t, db, domain.FamilyMovements), nil,
		pgtest.Row{"posting_at": posted, "movement_type": int64(schema.MvtGoodsReceipt), "plant": int64(1401),
			"material": material, "batch": "B1", "qty": decimal.RequireFromString("5"), "unit": "KG"})

	tr := New(db, schema.DefaultRules(), 0)
	_, err := tr.Transform(ctx, domain.FamilyMovements, Scope{})
	require.NoError(t, err)

	var net decimal.Decimal
	require.NoError(t, db.GetContext(ctx, &net,
		`SELECT net_qty FROM fact_inventory WHERE material_code = $1 AND plant_code = 1401`, material))
	assert.True(t, decimal.NewFromInt(5).Equal(net), net.String())

	var onHand decimal.Decimal
	require.NoError(t, db.GetContext(ctx, &onHand,
		`SELECT on_hand FROM v_current_stock WHERE material_code = $1 AND plant_code = 1401 AND batch = 'B1'`, material))
	assert.True(t, decimal.NewFromInt(5).Equal(onHand), onHand.String())
}
