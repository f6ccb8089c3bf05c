package clause

// OnDuplicateKey MySQL `ON DUPLICATE KEY UPDATE` clause. Every listed column
// is assigned its incoming row value via VALUES(col), so a conflicting row is
// overwritten with what the insert carried.
type OnDuplicateKey struct {
	Columns []Column
}

// Build build on duplicate key clause
func (onDup OnDuplicateKey) Build(builder Builder) {
	if len(onDup.Columns) == 0 {
		return
	}

	builder.WriteString("ON DUPLICATE KEY UPDATE ")
	for idx, column := range onDup.Columns {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(column)
		builder.WriteString("=VALUES(")
		builder.WriteQuoted(column)
		builder.WriteByte(')')
	}
}
