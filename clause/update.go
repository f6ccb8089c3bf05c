package clause

// Update update clause
type Update struct {
	Table    Table
	Modifier string
}

// Build build update clause
func (update Update) Build(builder Builder) {
	builder.WriteString("UPDATE ")
	if update.Modifier != "" {
		builder.WriteString(update.Modifier)
		builder.WriteByte(' ')
	}
	builder.WriteQuoted(update.Table)
}
