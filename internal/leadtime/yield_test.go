package leadtime

import (
	"testing"

	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestP01Batch(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"25L2476310", "25L2476210", true},
		{"25L2471010", "25L2470910", true},
		{"25L24701AB", "25L24700AB", true},
		{"25L2470010", "", false},
		{"25L247X310", "", false},
		{"25L24763", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := P01Batch(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMaterialsMatch(t *testing.T) {
	assert.True(t, MaterialsMatch("PFT-215 LIGHT GREY VN", "PFT-215 LIGHT GREY VN-18KP"))
	assert.False(t, MaterialsMatch("PCL-31300 BLUE OG PASTE AF VN", "PCL-31300 BLUE OR 50 PASTE VN-4K"))
	assert.False(t, MaterialsMatch("PFT-215", "PFT-215"))
	assert.False(t, MaterialsMatch("PFT-215", "PFT-2150"))
	assert.False(t, MaterialsMatch("", "-18KP"))
}

func TestKgFactorsToKg(t *testing.T) {
	f := KgFactors{"P01-1": decimal.NewFromInt(18)}
	kg, ok := f.ToKg(decimal.NewFromInt(3), " kg ", "ANY")
	require.True(t, ok)
	assert.Equal(t, "3", kg.String())

	kg, ok = f.ToKg(decimal.NewFromInt(3), "PC", "P01-1")
	require.True(t, ok)
	assert.Equal(t, "54", kg.String())

	_, ok = f.ToKg(decimal.NewFromInt(3), "PC", "P01-2")
	assert.False(t, ok)
}

func yieldMv(typ int, plant int64, batch, posted, qty, material, desc, unit string) Movement {
	m := mv(typ, plant, posted, qty)
	m.Batch, m.Material, m.MaterialDesc, m.Unit = batch, material, desc, unit
	return m
}

func TestPairYields(t *testing.T) {
	const bulk = "PFT-215 LIGHT GREY VN"
	movs := []Movement{
		yieldMv(261, factory, "25L2476310", "2025-02-01 08:00", "-100", "P02-1", bulk, "KG"),
		yieldMv(261, factory, "25L2476310", "2025-02-01 09:00", "-20", "P02-1", bulk, "KG"),
		yieldMv(262, factory, "25L2476310", "2025-02-01 10:00", "20", "P02-1", bulk, "KG"),
		yieldMv(101, dc, "25L2476210", "2025-02-03 08:00", "5", "P01-1", bulk+"-18KP", "PC"),

		// packed material is a different product
		yieldMv(261, factory, "25L2478810", "2025-02-01 08:00", "-50", "P02-2", bulk, "KG"),
		yieldMv(101, dc, "25L2478710", "2025-02-03 08:00", "50", "P01-9", "OTHER-18KP", "KG"),

		// no unit weight for the packed material
		yieldMv(261, factory, "25L2479910", "2025-02-01 08:00", "-50", "P02-3", bulk, "KG"),
		yieldMv(101, dc, "25L2479810", "2025-02-03 08:00", "3", "P01-3", bulk+"-4K", "PC"),

		// packed receipt fully reversed
		yieldMv(261, factory, "25L2475510", "2025-02-01 08:00", "-50", "P02-4", bulk, "KG"),
		yieldMv(101, dc, "25L2475410", "2025-02-03 08:00", "50", "P01-4", bulk+"-1K", "KG"),
		yieldMv(102, dc, "25L2475410", "2025-02-03 09:00", "-50", "P01-4", bulk+"-1K", "KG"),

		// implausible yield
		yieldMv(261, factory, "25L2473310", "2025-02-01 08:00", "-10", "P02-5", bulk, "KG"),
		yieldMv(101, dc, "25L2473210", "2025-02-03 08:00", "20", "P01-5", bulk+"-2K", "KG"),
	}
	factors := KgFactors{"P01-1": decimal.NewFromInt(18)}

	got := PairYields(movs, factors, schema.DefaultRules())
	require.Len(t, got, 1)
	y := got[0]
	assert.Equal(t, "25L2476310", y.P02Batch)
	assert.Equal(t, "25L2476210", y.P01Batch)
	assert.Equal(t, "P01-1", y.P01Material)
	assert.Equal(t, "100", y.ConsumedKg.String())
	assert.Equal(t, "90", y.ProducedKg.String())
	assert.Equal(t, "90", y.YieldPct.String())
	assert.Equal(t, "10", y.LossKg.String())
	assert.Equal(t, at("2025-02-01 08:00"), y.ProducedOn)
}
