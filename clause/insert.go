package clause

// Insert insert clause
type Insert struct {
	Table    Table
	Modifier string
}

// Build build insert clause
func (insert Insert) Build(builder Builder) {
	builder.WriteString("INSERT ")
	if insert.Modifier != "" {
		builder.WriteString(insert.Modifier)
		builder.WriteByte(' ')
	}

	builder.WriteString("INTO ")
	builder.WriteQuoted(insert.Table)
}
