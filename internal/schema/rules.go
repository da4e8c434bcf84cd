package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassifierThreshold is the minimum signature match ratio for a family to win.
const ClassifierThreshold = 0.6

// Rules carries the tunable business constants used by the derivation steps.
type Rules struct {
	FactoryPlant      int
	DistributionPlant int
	// MTOPrefix marks a purchase order as a sales (make-to-order) order.
	MTOPrefix       string
	MTSTargetDays   int
	MTOTargetDays   int
	Tolerance       decimal.Decimal
	StuckMedium     time.Duration
	StuckHigh       time.Duration
	StuckCritical   time.Duration
	LowYieldPercent decimal.Decimal
	LowYieldHigh    decimal.Decimal
	LowYieldCrit    decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		FactoryPlant:      1201,
		DistributionPlant: 1401,
		MTOPrefix:         "44",
		MTSTargetDays:     14,
		MTOTargetDays:     21,
		Tolerance:         decimal.NewFromFloat(0.2),
		StuckMedium:       48 * time.Hour,
		StuckHigh:         72 * time.Hour,
		StuckCritical:     120 * time.Hour,
		LowYieldPercent:   decimal.NewFromInt(85),
		LowYieldHigh:      decimal.NewFromInt(80),
		LowYieldCrit:      decimal.NewFromInt(70),
	}
}

// TargetDays returns the lead-time target for a category.
func (r Rules) TargetDays(mto bool) int {
	if mto {
		return r.MTOTargetDays
	}
	return r.MTSTargetDays
}
