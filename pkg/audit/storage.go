package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Criteria narrows audit queries. Zero-value fields match everything.
type Criteria struct {
	PrincipalID *uuid.UUID
	TenantID    *uuid.UUID
	Action      string
	Status      Status
	IP          string
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

// Storage is the audit persistence boundary. Query results are ordered by
// CreatedAt descending.
type Storage interface {
	// Store appends one entry.
	Store(ctx context.Context, entry Entry) error

	// Query returns entries matching the criteria, newest first.
	Query(ctx context.Context, criteria Criteria) ([]Entry, error)

	// Count returns the number of entries matching the criteria.
	Count(ctx context.Context, criteria Criteria) (int64, error)

	// DeleteBefore removes entries created before the cutoff and returns
	// the number removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BatchStorage is an optional interface for storages with efficient bulk
// appends. The async writer prefers it when available.
type BatchStorage interface {
	Storage
	StoreBatch(ctx context.Context, entries []Entry) error
}

func (c Criteria) matches(e Entry) bool {
	if c.PrincipalID != nil && (e.PrincipalID == nil || *e.PrincipalID != *c.PrincipalID) {
		return false
	}
	if c.TenantID != nil && (e.TenantID == nil || *e.TenantID != *c.TenantID) {
		return false
	}
	if c.Action != "" && e.Action != c.Action {
		return false
	}
	if c.Status != "" && e.Status != c.Status {
		return false
	}
	if c.IP != "" && e.IP != c.IP {
		return false
	}
	if !c.From.IsZero() && e.CreatedAt.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && !e.CreatedAt.Before(c.To) {
		return false
	}
	return true
}
