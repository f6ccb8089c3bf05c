package sqlbulk

import (
	"fmt"
	"strings"

	"github.com/sqlbulk/sqlbulk/clause"
	"github.com/sqlbulk/sqlbulk/logger"
	"github.com/sqlbulk/sqlbulk/schema"
)

// Statement one synthesized SQL statement and its bound vars; implements
// clause.Builder with MySQL quoting and `?` placeholders
type Statement struct {
	SQL    strings.Builder
	Vars   []interface{}
	Table  string
	Schema *schema.Schema
}

// Write write string
func (stmt *Statement) WriteString(str string) (int, error) {
	return stmt.SQL.WriteString(str)
}

// WriteByte write byte
func (stmt *Statement) WriteByte(c byte) error {
	return stmt.SQL.WriteByte(c)
}

// WriteQuoted write quoted value
func (stmt *Statement) WriteQuoted(value interface{}) {
	stmt.QuoteTo(&stmt.SQL, value)
}

// QuoteTo write quoted value to writer
func (stmt *Statement) QuoteTo(writer clause.Writer, field interface{}) {
	switch v := field.(type) {
	case clause.Table:
		if v.Raw {
			writer.WriteString(v.Name)
		} else {
			name := v.Name
			if name == "" {
				name = stmt.Table
			}
			quoteIdent(writer, name)
			if v.Alias != "" {
				writer.WriteString(" AS ")
				quoteIdent(writer, v.Alias)
			}
		}
	case clause.Column:
		if v.Raw {
			writer.WriteString(v.Name)
			return
		}
		if v.Table != "" {
			quoteIdent(writer, v.Table)
			writer.WriteByte('.')
		}
		quoteIdent(writer, v.Name)
		if v.Alias != "" {
			writer.WriteString(" AS ")
			quoteIdent(writer, v.Alias)
		}
	case string:
		quoteIdent(writer, v)
	default:
		quoteIdent(writer, fmt.Sprint(field))
	}
}

func quoteIdent(writer clause.Writer, name string) {
	writer.WriteByte('`')
	writer.WriteString(strings.ReplaceAll(name, "`", "``"))
	writer.WriteByte('`')
}

// AddVar add vars: a `?` placeholder per value, emission order defines the
// positional parameter order
func (stmt *Statement) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}

		switch v := v.(type) {
		case clause.Column, clause.Table:
			stmt.QuoteTo(writer, v)
		case clause.Expression:
			v.Build(stmt)
		default:
			stmt.Vars = append(stmt.Vars, v)
			writer.WriteByte('?')
		}
	}
}

// Build builds expressions into the statement, space separated
func (stmt *Statement) Build(exprs ...clause.Expression) {
	for idx, expr := range exprs {
		if idx > 0 {
			stmt.WriteByte(' ')
		}
		expr.Build(stmt)
	}
}

// Explain returns the statement text with vars inlined, for trace output only
func (stmt *Statement) Explain() string {
	return logger.ExplainSQL(stmt.SQL.String(), "'", stmt.Vars...)
}

func (db *DB) newStatement(sch *schema.Schema) *Statement {
	return &Statement{Table: sch.Table, Schema: sch}
}

func columnsOf(fields []*schema.Field) []clause.Column {
	columns := make([]clause.Column, len(fields))
	for idx, field := range fields {
		columns[idx] = clause.Column{Name: field.DBName}
	}
	return columns
}
