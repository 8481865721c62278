package tenant

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/identity"
)

// Stores selects the identity store for the request's tenant partition.
// Partition binding is context-scoped: the store is picked per call from the
// tenant in the context, never from process-global state, so concurrent
// requests for different tenants cannot leak into each other.
//
// Tenants with a Connection or Prefix get a dedicated store built once by
// the factory; everything else shares the default store.
type Stores struct {
	def     identity.Store
	factory func(*identity.Tenant) identity.Store

	mu    sync.RWMutex
	built map[uuid.UUID]identity.Store
}

// StoresOption configures the registry.
type StoresOption func(*Stores)

// WithStoreFactory supplies the constructor for partitioned stores, e.g. one
// returning identity.NewPostgresStore with the tenant's table prefix or a
// pool for its named connection. Without a factory every tenant shares the
// default store.
func WithStoreFactory(factory func(*identity.Tenant) identity.Store) StoresOption {
	return func(s *Stores) {
		s.factory = factory
	}
}

// NewStores creates a partition registry over the default store.
func NewStores(def identity.Store, opts ...StoresOption) *Stores {
	s := &Stores{
		def:   def,
		built: make(map[uuid.UUID]identity.Store),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// For returns the store bound to the context's tenant. Contexts without a
// tenant, tenants without a partition, and missing factories all fall back
// to the default store.
func (s *Stores) For(ctx context.Context) identity.Store {
	t, ok := FromContext(ctx)
	if !ok || s.factory == nil {
		return s.def
	}
	if t.Connection == "" && t.Prefix == "" {
		return s.def
	}

	s.mu.RLock()
	store, ok := s.built[t.ID]
	s.mu.RUnlock()
	if ok {
		return store
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.built[t.ID]; ok {
		return store
	}
	store = s.factory(t)
	if store == nil {
		return s.def
	}
	s.built[t.ID] = store
	return store
}
