package clause

// Column quote with name
type Column struct {
	Table string
	Name  string
	Alias string
	Raw   bool
}

// Table quote with name
type Table struct {
	Name  string
	Alias string
	Raw   bool
}

// Expr raw expression; `?` is replaced with a bound var in order
type Expr struct {
	SQL  string
	Vars []interface{}
}

// Build build raw expression
func (expr Expr) Build(builder Builder) {
	var idx int
	for _, v := range []byte(expr.SQL) {
		if v == '?' && idx < len(expr.Vars) {
			builder.AddVar(builder, expr.Vars[idx])
			idx++
		} else {
			builder.WriteByte(v)
		}
	}
}
