package config

import (
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/stretchr/testify/assert"
)

func TestRulesSchemaKeepsDefaults(t *testing.T) {
	got := RulesConfig{}.Schema()
	want := schema.DefaultRules()
	assert.Equal(t, want.DistributionPlant, got.DistributionPlant)
	assert.Equal(t, want.MTOPrefix, got.MTOPrefix)
	assert.Equal(t, want.StuckMedium, got.StuckMedium)
	assert.True(t, want.Tolerance.Equal(got.Tolerance))
}

func TestRulesSchemaOverrides(t *testing.T) {
	got := RulesConfig{
		DistributionPlant: 1402,
		MTOPrefix:         "45",
		MTOTargetDays:     30,
		StuckMediumHours:  24,
		Tolerance:         0.1,
		LowYieldThreshold: 90,
	}.Schema()
	assert.Equal(t, 1402, got.DistributionPlant)
	assert.Equal(t, "45", got.MTOPrefix)
	assert.Equal(t, 30, got.MTOTargetDays)
	assert.Equal(t, 14, got.MTSTargetDays)
	assert.Equal(t, 24*time.Hour, got.StuckMedium)
	assert.Equal(t, "0.1", got.Tolerance.String())
	assert.Equal(t, "90", got.LowYieldPercent.String())
}
