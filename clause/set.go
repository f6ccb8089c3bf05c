package clause

// Set set clause
type Set []Assignment

// Assignment assignment expression
type Assignment struct {
	Column Column
	Value  interface{}
}

// Build build set clause
func (set Set) Build(builder Builder) {
	builder.WriteString("SET ")
	for idx, assignment := range set {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(assignment.Column)
		builder.WriteByte('=')
		builder.AddVar(builder, assignment.Value)
	}
}
