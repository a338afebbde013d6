package schema

import (
	"strings"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/querysql"
	"github.com/thunderluca/mementofx-sqlite/internal/rowcodec"
	"github.com/thunderluca/mementofx-sqlite/internal/typemap"
)

// CreateTableSQL renders CREATE TABLE for an event kind.
// The Id column is the primary key; every other column is NOT NULL unless
// its value info is nullable.
func CreateTableSQL(table string, columns []rowcodec.Value) string {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		def := querysql.QuoteIdent(c.Column) + " " + typemap.ColumnType(c.Info.Kind)
		switch {
		case strings.EqualFold(c.Column, event.ColumnID):
			def += " NOT NULL PRIMARY KEY"
		case c.Info.Nullable:
			def += " NULL"
		default:
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return "CREATE TABLE IF NOT EXISTS " + querysql.QuoteIdent(table) + " (" + strings.Join(defs, ", ") + ")"
}

// IndexName returns the name of the secondary index on table.column.
func IndexName(table, column string) string {
	return "IX_" + table + "_" + column
}

// CreateIndexSQL renders CREATE INDEX for one column.
func CreateIndexSQL(table, column string) string {
	return "CREATE INDEX IF NOT EXISTS " + querysql.QuoteIdent(IndexName(table, column)) +
		" ON " + querysql.QuoteIdent(table) + " (" + querysql.QuoteIdent(column) + ")"
}

// AddColumnSQL renders ALTER TABLE ADD COLUMN. Added columns are always nullable.
func AddColumnSQL(table string, column rowcodec.Value) string {
	return "ALTER TABLE " + querysql.QuoteIdent(table) +
		" ADD COLUMN " + querysql.QuoteIdent(column.Column) + " " + typemap.ColumnType(column.Info.Kind)
}
