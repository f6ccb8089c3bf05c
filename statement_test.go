package sqlbulk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sqlbulk/sqlbulk/clause"
)

func TestStatementQuoting(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected string
	}{
		{"users", "`users`"},
		{"weird`name", "`weird``name`"},
		{clause.Column{Name: "id"}, "`id`"},
		{clause.Column{Table: "users", Name: "id"}, "`users`.`id`"},
		{clause.Column{Name: "id", Alias: "uid"}, "`id` AS `uid`"},
		{clause.Column{Name: "COUNT(*)", Raw: true}, "COUNT(*)"},
		{clause.Table{Name: "users"}, "`users`"},
		{clause.Table{Name: "users", Alias: "u"}, "`users` AS `u`"},
	}

	for _, tt := range tests {
		stmt := &Statement{}
		stmt.WriteQuoted(tt.value)
		assert.Equal(t, tt.expected, stmt.SQL.String())
	}
}

func TestStatementTableFallback(t *testing.T) {
	stmt := &Statement{Table: "orders"}
	stmt.WriteQuoted(clause.Table{})
	assert.Equal(t, "`orders`", stmt.SQL.String())
}

func TestAddVarOrder(t *testing.T) {
	stmt := &Statement{}
	stmt.AddVar(stmt, 1, "two", 3.0)

	assert.Equal(t, "?,?,?", stmt.SQL.String())
	assert.Equal(t, []interface{}{1, "two", 3.0}, stmt.Vars)
}

func TestAddVarExpression(t *testing.T) {
	stmt := &Statement{}
	stmt.AddVar(stmt, clause.Expr{SQL: "NOW()"})
	assert.Equal(t, "NOW()", stmt.SQL.String())
	assert.Empty(t, stmt.Vars)
}

func TestStatementExplain(t *testing.T) {
	stmt := &Statement{}
	stmt.WriteString("SELECT * FROM `users` WHERE `id` = ? AND `name` = ?")
	stmt.Vars = []interface{}{42, "ann"}
	assert.Equal(t, "SELECT * FROM `users` WHERE `id` = 42 AND `name` = 'ann'", stmt.Explain())
}
