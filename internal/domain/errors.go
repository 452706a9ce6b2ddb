package domain

import "fmt"

// ValidationError marks a single malformed feed record. Callers drop the
// record and continue with the rest of the batch; it never escalates to a
// batch-level failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid record: missing required field %q", e.Field)
	}
	return fmt.Sprintf("invalid record: field %q: %s", e.Field, e.Reason)
}

// FetchError wraps a feed failure that survived the bounded retry budget.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch neo feed: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// StorageError wraps a transactional write failure. It aborts the current
// stage's transaction and marks the whole cycle Failed.
type StorageError struct {
	Table string
	Err   error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Table, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// ArchiveError wraps an archival sink failure. It is surfaced to the caller
// but does not block the structured-store stages.
type ArchiveError struct {
	Object string
	Err    error
}

func (e *ArchiveError) Error() string { return fmt.Sprintf("archive %s: %v", e.Object, e.Err) }
func (e *ArchiveError) Unwrap() error { return e.Err }
