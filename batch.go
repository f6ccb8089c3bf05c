package sqlbulk

import (
	"fmt"
	"reflect"
)

// partition splits entities into order-preserving chunks of at most size
// rows; the concatenation of all chunks is the input
func partition(entities reflect.Value, size int) ([]reflect.Value, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	}

	n := entities.Len()
	batches := make([]reflect.Value, 0, (n+size-1)/size)
	for low := 0; low < n; low += size {
		high := low + size
		if high > n {
			high = n
		}
		batches = append(batches, entities.Slice(low, high))
	}
	return batches, nil
}
