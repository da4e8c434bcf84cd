package schema

import (
	"fmt"
	"strings"
)

// RawTableDDL renders the CREATE statements for the family's raw table. The
// statements are idempotent so they can run on every migrate.
func (d Definition) RawTableDDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.RawTable)
	b.WriteString("    id BIGSERIAL PRIMARY KEY,\n")
	b.WriteString("    upload_id BIGINT NOT NULL REFERENCES upload_journal(id),\n")
	b.WriteString("    source_row INTEGER NOT NULL,\n")
	b.WriteString("    row_hash CHAR(32) NOT NULL,\n")
	if d.Periodic {
		b.WriteString("    snapshot_date DATE NOT NULL,\n")
	}
	for _, c := range d.Columns {
		null := ""
		if c.Required {
			null = " NOT NULL"
		}
		fmt.Fprintf(&b, "    %s %s%s,\n", c.DB, c.Type.SQLType(), null)
	}
	b.WriteString("    raw_data JSONB NOT NULL,\n")
	b.WriteString("    loaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()\n")
	b.WriteString(");\n")

	if d.Periodic {
		fmt.Fprintf(&b, "CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_hash ON %s (snapshot_date, row_hash);\n", d.RawTable, d.RawTable)
	} else {
		fmt.Fprintf(&b, "CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_hash ON %s (row_hash);\n", d.RawTable, d.RawTable)
	}
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS ix_%s_upload ON %s (upload_id);\n", d.RawTable, d.RawTable)
	return b.String()
}

// InsertColumns lists the raw-table columns written by the loader, in the
// order the loader supplies values.
func (d Definition) InsertColumns() []string {
	cols := []string{"upload_id", "source_row", "row_hash"}
	if d.Periodic {
		cols = append(cols, "snapshot_date")
	}
	for _, c := range d.Columns {
		cols = append(cols, c.DB)
	}
	return append(cols, "raw_data")
}
