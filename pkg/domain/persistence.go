package domain

import "context"

// DocumentStore persists the building document as a whole. Implementations
// store exactly what they are given; version bookkeeping belongs to callers.
type DocumentStore interface {
	// Load returns a freshly decoded copy of the stored document. A missing
	// document yields ErrNotFound{Entity: EntityDocument}; an undecodable one
	// yields ErrParse.
	Load(ctx context.Context) (*Building, error)
	// Save replaces the stored document.
	Save(ctx context.Context, b *Building) error
	// Close releases any underlying handles.
	Close() error
}
