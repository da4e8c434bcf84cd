package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactSpecUpsertSQL(t *testing.T) {
	spec := FactSpec{
		Table:   "fact_target",
		Key:     []string{"salesman_name", "semester", "year"},
		Columns: []string{"target_amount"},
	}
	sql := spec.UpsertSQL()
	assert.Contains(t, sql, "INSERT INTO fact_target (salesman_name, semester, year, target_amount, row_hash, updated_at)")
	assert.Contains(t, sql, "VALUES (:salesman_name, :semester, :year, :target_amount, :row_hash, NOW())")
	assert.Contains(t, sql, "ON CONFLICT (salesman_name, semester, year) DO UPDATE SET target_amount = EXCLUDED.target_amount, row_hash = EXCLUDED.row_hash, updated_at = NOW()")
	assert.Contains(t, sql, "WHERE fact_target.row_hash IS DISTINCT FROM EXCLUDED.row_hash")
	assert.Contains(t, sql, "RETURNING (xmax = 0) AS inserted")
}

func TestUpsertResultAdd(t *testing.T) {
	r := UpsertResult{Inserted: 1}
	r.Add(UpsertResult{Inserted: 2, Updated: 1, Unchanged: 4})
	assert.Equal(t, UpsertResult{Inserted: 3, Updated: 1, Unchanged: 4}, r)
}
