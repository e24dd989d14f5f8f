package exceptional

import "context"

// ErrorStore is the capability the core hands finished records to. The store
// owns everything the core deliberately does not: assigning the surrogate ID,
// hash-based duplicate rollup (DuplicateCount, IsDuplicate), protection flags,
// retention and DeletionDate.
//
// Callers must pass a Clone when the originating request may still mutate the
// record; after the hand-off, clone and original are independent.
type ErrorStore interface {
	Log(ctx context.Context, e *Error) error
}
