package clause

// Where where clause; expressions are joined with AND
type Where struct {
	Exprs []Expression
}

// Build build where clause
func (where Where) Build(builder Builder) {
	if len(where.Exprs) == 0 {
		return
	}

	builder.WriteString("WHERE ")
	for idx, expr := range where.Exprs {
		if idx > 0 {
			builder.WriteString(" AND ")
		}
		expr.Build(builder)
	}
}

// KeyRows matches a set of rows by composite key equality: a disjunction with
// one parenthesized conjunction per row. Vars are emitted row-major over the
// key columns, index i*len(Columns)+j for row i, column j.
type KeyRows struct {
	Columns []Column
	Rows    [][]interface{}
}

// Build build key rows predicate
func (keys KeyRows) Build(builder Builder) {
	for idx, row := range keys.Rows {
		if idx > 0 {
			builder.WriteString(" OR ")
		}

		builder.WriteByte('(')
		for cidx, column := range keys.Columns {
			if cidx > 0 {
				builder.WriteString(" AND ")
			}
			builder.WriteQuoted(column)
			builder.WriteString(" = ")
			builder.AddVar(builder, row[cidx])
		}
		builder.WriteByte(')')
	}
}
