package schema

import (
	"strings"
	"testing"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamiliesDeclarationOrder(t *testing.T) {
	want := []domain.Family{
		domain.FamilyBilling,
		domain.FamilyDelivery,
		domain.FamilyProduction,
		domain.FamilyMovements,
		domain.FamilyPurchaseOrders,
		domain.FamilySalesHierarchy,
		domain.FamilyARAging,
		domain.FamilyTargets,
	}
	defs := Families()
	require.Len(t, defs, len(want))
	for i, d := range defs {
		assert.Equal(t, want[i], d.Family)
	}
}

func TestPositionalFamiliesWidth(t *testing.T) {
	delivery, ok := Lookup(domain.FamilyDelivery)
	require.True(t, ok)
	assert.True(t, delivery.Positional)
	assert.Len(t, delivery.Columns, 34)

	movements, ok := Lookup(domain.FamilyMovements)
	require.True(t, ok)
	assert.True(t, movements.Positional)
	assert.Len(t, movements.Columns, 16)
}

func TestSignaturesAreDeclaredColumns(t *testing.T) {
	for _, d := range Families() {
		for _, s := range d.Signature {
			_, ok := d.Column(s)
			assert.Truef(t, ok, "%s signature %q is not a declared column", d.Family, s)
		}
	}
}

func TestColumnNamesUnique(t *testing.T) {
	for _, d := range Families() {
		seenHeader := map[string]bool{}
		seenDB := map[string]bool{}
		for _, c := range d.Columns {
			assert.Falsef(t, seenHeader[c.Header], "%s: duplicate header %q", d.Family, c.Header)
			assert.Falsef(t, seenDB[c.DB], "%s: duplicate column %q", d.Family, c.DB)
			seenHeader[c.Header] = true
			seenDB[c.DB] = true
		}
	}
}

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Family
		ok   bool
	}{
		{"billing", domain.FamilyBilling, true},
		{"ZRSD002", domain.FamilyBilling, true},
		{" mb51 ", domain.FamilyMovements, true},
		{"AR_AGING", domain.FamilyARAging, true},
		{"zrfi005", domain.FamilyARAging, true},
		{"payroll", domain.FamilyUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFamily(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawTableDDL(t *testing.T) {
	ar, _ := Lookup(domain.FamilyARAging)
	ddl := ar.RawTableDDL()
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS raw_ar_aging")
	assert.Contains(t, ddl, "snapshot_date DATE NOT NULL")
	assert.Contains(t, ddl, "ON raw_ar_aging (snapshot_date, row_hash)")
	assert.Contains(t, ddl, "customer_code TEXT NOT NULL")

	billing, _ := Lookup(domain.FamilyBilling)
	ddl = billing.RawTableDDL()
	assert.NotContains(t, ddl, "snapshot_date")
	assert.Contains(t, ddl, "ON raw_billing (row_hash)")
	assert.Contains(t, ddl, "billing_item BIGINT NOT NULL")
	assert.True(t, strings.HasSuffix(billing.InsertColumns()[len(billing.InsertColumns())-1], "raw_data"))
}

func TestDivisionFor(t *testing.T) {
	assert.Equal(t, "Industry", DivisionFor("11"))
	assert.Equal(t, "Retails", DivisionFor(" 13"))
	assert.Equal(t, "Project", DivisionFor("15"))
	assert.Equal(t, DivisionOther, DivisionFor("20"))
	assert.Equal(t, DivisionOther, DivisionFor(""))
}

func TestStockImpact(t *testing.T) {
	assert.Equal(t, 1, StockImpact(101))
	assert.Equal(t, -1, StockImpact(102))
	assert.Equal(t, -1, StockImpact(601))
	assert.Equal(t, 1, StockImpact(602))
	assert.Equal(t, 0, StockImpact(311))
	assert.Equal(t, 0, StockImpact(999))
}
