package main

import (
	"testing"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildOrderRunsDimensionsFirst(t *testing.T) {
	dims, facts, err := rebuildOrder(nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Family{domain.FamilySalesHierarchy}, dims)
	assert.NotContains(t, facts, domain.FamilySalesHierarchy)
	assert.Contains(t, facts, domain.FamilyBilling)
	assert.Contains(t, facts, domain.FamilyARAging)
}

func TestRebuildOrderSelectsFamilies(t *testing.T) {
	dims, facts, err := rebuildOrder([]string{"billing,production", " targets "})
	require.NoError(t, err)
	assert.Empty(t, dims)
	assert.ElementsMatch(t, []domain.Family{domain.FamilyBilling, domain.FamilyProduction, domain.FamilyTargets}, facts)

	_, _, err = rebuildOrder([]string{"payroll"})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
