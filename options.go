package sqlbulk

import "fmt"

// DefaultBatchSize rows per generated statement when none is configured
const DefaultBatchSize = 2000

// Options configure one bulk call. The zero value is usable: default batch
// size, no identity propagation, no cascade.
type Options struct {
	// BatchSize is the maximum number of rows per generated statement;
	// 0 means the DB's configured default
	BatchSize int
	// SetOutputIdentity reconciles server-generated identity values back
	// onto the entities after Insert/Upsert
	SetOutputIdentity bool
	// IncludeChildren cascades the operation to declared child collections
	IncludeChildren bool
	// ExcludeChildren skips the named navigations during cascade
	ExcludeChildren []string
	// SequentialIdentity assigns identities by incrementing the first
	// generated id in batch order instead of re-selecting rows. Only valid
	// for plain inserts into a table with a contiguous auto increment and
	// no concurrent writers; ignored for upserts.
	SequentialIdentity bool
}

func (opts Options) withDefaults(db *DB) (Options, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = db.DefaultBatchSize
	}
	if opts.BatchSize <= 0 {
		return opts, fmt.Errorf("%w: %d", ErrInvalidBatchSize, opts.BatchSize)
	}
	return opts, nil
}

func (opts Options) childExcluded(name string) bool {
	for _, excluded := range opts.ExcludeChildren {
		if excluded == name {
			return true
		}
	}
	return false
}
