package audit

import "errors"

var (
	// ErrInvalidEntry indicates the entry is missing required fields
	ErrInvalidEntry = errors.New("audit.invalid_entry")

	// ErrStorageUnavailable indicates the storage backend rejected the write
	ErrStorageUnavailable = errors.New("audit.storage_unavailable")
)
