package leadtime

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
)

// PairYield is the mass balance of a bulk (P02) batch consumed at the factory
// against the packed (P01) batch received at the distribution plant.
type PairYield struct {
	P02Batch    string
	P01Batch    string
	P02Material string
	P02Desc     string
	P01Material string
	P01Desc     string
	ConsumedKg  decimal.Decimal
	ProducedKg  decimal.Decimal
	YieldPct    decimal.Decimal
	LossKg      decimal.Decimal
	ProducedOn  time.Time
}

var maxPairYield = decimal.NewFromInt(150)

// KgFactors maps material codes to kilograms per unit.
type KgFactors map[string]decimal.Decimal

// ToKg converts qty in unit to kilograms. ok is false when the unit needs a
// factor the material does not have.
func (f KgFactors) ToKg(qty decimal.Decimal, unit, material string) (decimal.Decimal, bool) {
	if strings.EqualFold(strings.TrimSpace(unit), "KG") {
		return qty, true
	}
	factor, ok := f[material]
	if !ok || !factor.IsPositive() {
		return decimal.Zero, false
	}
	return qty.Mul(factor), true
}

// P01Batch derives the packed batch from a bulk batch: the two digits at
// positions 7-8 count down by one.
func P01Batch(p02 string) (string, bool) {
	if len(p02) < 10 {
		return "", false
	}
	digits := p02[6:8]
	if digits[0] < '0' || digits[0] > '9' || digits[1] < '0' || digits[1] > '9' {
		return "", false
	}
	n, _ := strconv.Atoi(digits)
	if n == 0 {
		return "", false
	}
	return p02[:6] + twoDigits(n-1) + p02[8:], true
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// MaterialsMatch reports whether the packed description is the bulk one plus
// a packaging suffix such as "-18KP".
func MaterialsMatch(p02Desc, p01Desc string) bool {
	if p02Desc == "" || p01Desc == "" || !strings.HasPrefix(p01Desc, p02Desc) {
		return false
	}
	return strings.HasPrefix(p01Desc[len(p02Desc):], "-")
}

// PairYields pairs every consumed bulk batch with its packed batch and
// computes the yield. Pairs whose materials do not match, that lack a unit
// conversion, or whose yield falls outside 0-150% are dropped.
func PairYields(movs []Movement, factors KgFactors, rules schema.Rules) []PairYield {
	consumed := nettedByBatch(movs, int64(rules.FactoryPlant), schema.MvtConsumption, schema.MvtConsumptionReversal)
	produced := nettedByBatch(movs, int64(rules.DistributionPlant), schema.MvtGoodsReceipt, schema.MvtGoodsReceiptReversal)

	batches := make([]string, 0, len(consumed))
	for b := range consumed {
		batches = append(batches, b)
	}
	sort.Strings(batches)

	var out []PairYield
	for _, p02 := range batches {
		p01, ok := P01Batch(p02)
		if !ok {
			continue
		}
		in, outs := consumed[p02], produced[p01]
		if len(outs) == 0 {
			continue
		}
		if y, ok := pairYield(p02, p01, in, outs, factors); ok {
			out = append(out, y)
		}
	}
	return out
}

func pairYield(p02, p01 string, in, outs []Movement, factors KgFactors) (PairYield, bool) {
	first, packed := in[0], outs[0]
	if !MaterialsMatch(first.MaterialDesc, packed.MaterialDesc) {
		return PairYield{}, false
	}
	consumedKg := sumQty(in)
	if !consumedKg.IsPositive() {
		return PairYield{}, false
	}
	producedKg, ok := factors.ToKg(sumQty(outs), packed.Unit, packed.Material)
	if !ok || !producedKg.IsPositive() {
		return PairYield{}, false
	}
	pct := producedKg.Div(consumedKg).Mul(decimal.NewFromInt(100))
	if pct.IsNegative() || pct.GreaterThan(maxPairYield) {
		return PairYield{}, false
	}
	return PairYield{
		P02Batch:    p02,
		P01Batch:    p01,
		P02Material: first.Material,
		P02Desc:     first.MaterialDesc,
		P01Material: packed.Material,
		P01Desc:     packed.MaterialDesc,
		ConsumedKg:  consumedKg.Round(3),
		ProducedKg:  producedKg.Round(3),
		YieldPct:    pct.Round(2),
		LossKg:      consumedKg.Sub(producedKg).Round(3),
		ProducedOn:  first.PostedAt,
	}, true
}

// nettedByBatch nets forward movements against their reversals per batch at
// one plant.
func nettedByBatch(movs []Movement, plant int64, forward, reversal int) map[string][]Movement {
	raw := map[string][]Movement{}
	for _, m := range movs {
		if m.Plant != plant || m.Batch == "" || (m.Type != forward && m.Type != reversal) {
			continue
		}
		raw[m.Batch] = append(raw[m.Batch], m)
	}
	out := make(map[string][]Movement, len(raw))
	for b, ms := range raw {
		if netted := Net(ms, forward, reversal); len(netted) > 0 {
			out[b] = netted
		}
	}
	return out
}

// sumQty adds unsigned quantities; a missing quantity weighs nothing.
func sumQty(movs []Movement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movs {
		if m.Qty.Valid {
			total = total.Add(m.Qty.Decimal.Abs())
		}
	}
	return total
}
