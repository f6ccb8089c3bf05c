package clause

// Values column list plus one placeholder group per row.
// Vars come out of the builder in row-major order: for row i and column j the
// placeholder position is i*len(Columns)+j, the contract the binder relies on.
type Values struct {
	Columns []Column
	Values  [][]interface{}
}

// Build build values clause
func (values Values) Build(builder Builder) {
	if len(values.Columns) == 0 {
		return
	}

	builder.WriteByte('(')
	for idx, column := range values.Columns {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(column)
	}
	builder.WriteByte(')')

	builder.WriteString(" VALUES ")

	for idx, value := range values.Values {
		if idx > 0 {
			builder.WriteByte(',')
		}

		builder.WriteByte('(')
		builder.AddVar(builder, value...)
		builder.WriteByte(')')
	}
}
