// Package schema declares every recognised report family: its header signature,
// the typed columns the raw loader projects, and the business rules shared by
// the derivation steps.
package schema

import (
	"strings"

	"github.com/andresuchdata/erpflow/internal/domain"
)

type ColumnType int

const (
	Text ColumnType = iota
	Int
	Decimal
	Date
	DateTime
)

func (t ColumnType) String() string {
	switch t {
	case Int:
		return "int"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	}
	return "text"
}

// SQLType is the raw-table column type for t.
func (t ColumnType) SQLType() string {
	switch t {
	case Int:
		return "BIGINT"
	case Decimal:
		return "NUMERIC(18,4)"
	case Date:
		return "DATE"
	case DateTime:
		return "TIMESTAMP"
	}
	return "TEXT"
}

// Column is one declared column of a family. Header is the spreadsheet header
// text (case-sensitive), DB the raw-table column it is projected into.
type Column struct {
	Header   string
	DB       string
	Type     ColumnType
	Required bool
}

// ReplacePolicy decides what the loader does when a row hash already exists.
// Only ReplaceNone is declared today, so the Updated counter stays at zero.
type ReplacePolicy int

const (
	ReplaceNone ReplacePolicy = iota
)

type Definition struct {
	Family    domain.Family
	Code      string // ERP report code accepted as an alias
	Label     string
	RawTable  string
	Signature []string
	// HeaderSkip is the number of rows between the first non-blank row and the
	// real header row (banner rows).
	HeaderSkip int
	// Positional families assign columns by position; exported header text is
	// unreliable for them.
	Positional bool
	// Periodic families are point-in-time snapshots scoped by snapshot date.
	Periodic bool
	Replace  ReplacePolicy
	Columns  []Column
}

// HeaderNames returns the declared header names in schema order.
func (d Definition) HeaderNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Header
	}
	return out
}

// Column looks up a declared column by header name.
func (d Definition) Column(header string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Header == header {
			return c, true
		}
	}
	return Column{}, false
}

// Families returns every definition in the fixed declaration order used for
// classifier tie-breaks.
func Families() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the definition of f.
func Lookup(f domain.Family) (Definition, bool) {
	for _, d := range registry {
		if d.Family == f {
			return d, true
		}
	}
	return Definition{}, false
}

// ParseFamily accepts a family name or its ERP report code, case-insensitively.
func ParseFamily(s string) (domain.Family, bool) {
	s = strings.TrimSpace(s)
	for _, d := range registry {
		if strings.EqualFold(s, string(d.Family)) || strings.EqualFold(s, d.Code) {
			return d.Family, true
		}
	}
	return domain.FamilyUnknown, false
}
