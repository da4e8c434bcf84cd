package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/lib/pq"
)

// filterBuilder accumulates AND-ed clauses with numbered placeholders.
type filterBuilder struct {
	clauses []string
	args    []any
}

func (b *filterBuilder) add(format string, arg any) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(format, len(b.args)))
}

// where renders " WHERE ..." or an empty string.
func (b *filterBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// and renders " AND ..." for queries that already have a WHERE.
func (b *filterBuilder) and() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(b.clauses, " AND ")
}

// dateRange constrains column to the filter's inclusive date range.
func (b *filterBuilder) dateRange(filter *domain.DashboardFilter, column string) {
	if filter == nil {
		return
	}
	if filter.StartDate != nil {
		b.add(column+" >= $%d", filter.StartDate.Format("2006-01-02"))
	}
	if filter.EndDate != nil {
		b.add(column+" <= $%d", filter.EndDate.Format("2006-01-02"))
	}
}

// completed matches orders whose space separated system status carries any of
// the predicate's statuses.
func (b *filterBuilder) completed(p domain.CompletedPredicate, alias string) string {
	b.args = append(b.args, pq.Array(p.Statuses))
	return fmt.Sprintf("string_to_array(%ssystem_status, ' ') && $%d::text[]", normalizeAlias(alias), len(b.args))
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}

func limitOf(filter *domain.DashboardFilter, def, max int) int {
	if filter == nil || filter.Limit <= 0 {
		return def
	}
	if filter.Limit > max {
		return max
	}
	return filter.Limit
}
