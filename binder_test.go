package sqlbulk

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlbulk/sqlbulk/schema"
)

type Ticket struct {
	ID      uint64
	Subject string
	Status  *string `bulk:"default:open"`
}

func ticketSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.Parse(&Ticket{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return sch
}

func TestBindRowsRowMajor(t *testing.T) {
	sch := ticketSchema(t)
	closed := "closed"

	tickets := []Ticket{
		{Subject: "first", Status: &closed},
		{Subject: "second", Status: &closed},
	}
	values, err := bindRows(reflect.ValueOf(tickets), sch.WriteFields())
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"first", "closed", "second", "closed"}, values)
}

func TestBindRowsDefaultValue(t *testing.T) {
	sch := ticketSchema(t)

	tickets := []Ticket{{Subject: "first"}}
	values, err := bindRows(reflect.ValueOf(tickets), sch.WriteFields())
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"first", "open"}, values)
}

func TestBindRowsNilEntity(t *testing.T) {
	sch := ticketSchema(t)

	tickets := []*Ticket{{Subject: "first"}, nil}
	_, err := bindRows(reflect.ValueOf(tickets), sch.WriteFields())
	assert.ErrorIs(t, err, ErrInvalidData)
}
