package sqlbulk

import (
	"errors"

	"github.com/sqlbulk/sqlbulk/schema"
)

var (
	// configuration errors, detected before any statement is executed

	// ErrUnmappedType the value is not (a collection of) a mapped struct type
	ErrUnmappedType = schema.ErrUnsupportedDataType
	// ErrMissingTableName no table name could be determined for the type
	ErrMissingTableName = schema.ErrMissingTableName
	// ErrMissingKey neither a primary key nor an alternate key is declared
	ErrMissingKey = schema.ErrMissingKey
	// ErrInvalidBatchSize batch size must be a positive integer
	ErrInvalidBatchSize = errors.New("batch size must be a positive integer")
	// ErrInvalidData unsupported data
	ErrInvalidData = errors.New("unsupported data")
	// ErrInvalidDB the connection pool cannot be used
	ErrInvalidDB = errors.New("invalid db")

	// data errors, the caller must fix the input and retry the whole call

	// ErrAmbiguousLookupKey two entities produced an identical lookup key
	ErrAmbiguousLookupKey = errors.New("ambiguous lookup key")
	// ErrIncompleteReconciliation returned rows did not match every entity
	ErrIncompleteReconciliation = errors.New("identity reconciliation incomplete")
	// ErrMissingLookupColumns no columns are usable to re-identify rows
	ErrMissingLookupColumns = errors.New("no lookup columns available")

	// transport and statement errors, propagated unchanged and never retried here

	// ErrConnection transport failure
	ErrConnection = errors.New("connection failure")
	// ErrStatement the database rejected the statement
	ErrStatement = errors.New("statement rejected")

	// ErrFieldAccess a column accessor failed, metadata and entity disagree
	ErrFieldAccess = errors.New("field access failed")

	// ErrCyclicRelation the child relation graph loops back on itself
	ErrCyclicRelation = errors.New("cyclic child relation")
)
