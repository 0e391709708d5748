package seed

import "fmt"

// BatchError reports the persistence batch that halted a scope. Batches
// before Offset were committed; nothing at or after it was written.
type BatchError struct {
	Table  string
	Offset int
	Size   int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch at offset %d (%d rows) into %s: %v", e.Offset, e.Size, e.Table, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
