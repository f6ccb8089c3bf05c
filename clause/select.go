package clause

// Select select clause
type Select struct {
	Columns []Column
}

// Build build select clause
func (s Select) Build(builder Builder) {
	builder.WriteString("SELECT ")
	for idx, column := range s.Columns {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(column)
	}
}

// From from clause
type From struct {
	Table Table
}

// Build build from clause
func (from From) Build(builder Builder) {
	builder.WriteString("FROM ")
	builder.WriteQuoted(from.Table)
}
