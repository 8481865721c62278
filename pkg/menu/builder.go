package menu

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/cache"
	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/logger"
)

// Node is one visible menu entry. Children are ordered by Order ascending,
// ties broken by ID ascending.
type Node struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Order    int       `json:"order"`
	Children []*Node   `json:"children,omitempty"`
}

// PermissionSource answers the two questions the builder asks about a
// principal. *authz.Resolver satisfies it.
type PermissionSource interface {
	UserPermissions(ctx context.Context, principalID uuid.UUID) ([]identity.Permission, error)
	HasRole(ctx context.Context, principalID uuid.UUID, slug string) bool
}

// Builder assembles per-principal menu trees.
type Builder struct {
	store      identity.Store
	perms      PermissionSource
	superAdmin string
	cache      *cache.Cache[uuid.UUID, []*Node]
	log        *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithCache caches built trees per principal.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(b *Builder) { b.cache = cache.New[uuid.UUID, []*Node](capacity, ttl) }
}

// WithSuperAdminRole overrides the role slug that sees every active module.
func WithSuperAdminRole(slug string) Option {
	return func(b *Builder) {
		if slug != "" {
			b.superAdmin = slug
		}
	}
}

// WithLogger sets the logger for fail-closed error reporting.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBuilder creates a menu builder over the module catalog and a permission
// source.
func NewBuilder(store identity.Store, perms PermissionSource, opts ...Option) *Builder {
	b := &Builder{
		store:      store,
		perms:      perms,
		superAdmin: "super-admin",
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the principal's menu tree. Errors are logged and yield an
// empty menu.
func (b *Builder) Build(ctx context.Context, principalID uuid.UUID) []*Node {
	if b.cache != nil {
		if tree, ok := b.cache.Get(principalID); ok {
			return cloneTree(tree)
		}
	}

	tree, err := b.build(ctx, principalID)
	if err != nil {
		b.log.ErrorContext(ctx, "menu: build failed, returning empty menu",
			slog.String("principal_id", principalID.String()), slog.Any("error", err))
		return []*Node{}
	}

	if b.cache != nil {
		b.cache.Set(principalID, tree)
		return cloneTree(tree)
	}
	return tree
}

// Invalidate drops the principal's cached menu.
func (b *Builder) Invalidate(ctx context.Context, principalID uuid.UUID) {
	if b.cache != nil {
		b.cache.Delete(principalID)
	}
}

// Flush drops every cached menu. Called when the module catalog changes.
func (b *Builder) Flush(ctx context.Context) {
	if b.cache != nil {
		b.cache.Flush()
	}
}

func (b *Builder) build(ctx context.Context, principalID uuid.UUID) ([]*Node, error) {
	modules, err := b.store.Modules(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]identity.Module, len(modules))
	children := make(map[uuid.UUID][]uuid.UUID)
	var roots []uuid.UUID
	for _, m := range modules {
		if !m.Active {
			continue
		}
		byID[m.ID] = m
		if m.ParentID != nil {
			children[*m.ParentID] = append(children[*m.ParentID], m.ID)
		} else {
			roots = append(roots, m.ID)
		}
	}

	keep, err := b.visibleSet(ctx, principalID, byID, children, roots)
	if err != nil {
		return nil, err
	}

	var assemble func(ids []uuid.UUID) []*Node
	assemble = func(ids []uuid.UUID) []*Node {
		nodes := make([]*Node, 0, len(ids))
		for _, id := range ids {
			if _, ok := keep[id]; !ok {
				continue
			}
			m := byID[id]
			nodes = append(nodes, &Node{
				ID:       m.ID,
				Name:     m.Name,
				Slug:     m.Slug,
				Order:    m.Order,
				Children: assemble(children[id]),
			})
		}
		slices.SortStableFunc(nodes, func(a, c *Node) int {
			if a.Order != c.Order {
				return a.Order - c.Order
			}
			return strings.Compare(a.ID.String(), c.ID.String())
		})
		return nodes
	}
	return assemble(roots), nil
}

// visibleSet computes the module IDs the principal may see: modules holding
// one of the principal's permissions, plus every ancestor of such a module.
// An inactive module cuts off its whole subtree regardless of grants below.
func (b *Builder) visibleSet(ctx context.Context, principalID uuid.UUID, byID map[uuid.UUID]identity.Module, children map[uuid.UUID][]uuid.UUID, roots []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	keep := make(map[uuid.UUID]struct{})

	if b.perms.HasRole(ctx, principalID, b.superAdmin) {
		for id := range byID {
			keep[id] = struct{}{}
		}
		return keep, nil
	}

	perms, err := b.perms.UserPermissions(ctx, principalID)
	if err != nil {
		return nil, err
	}

	granted := make(map[uuid.UUID]struct{})
	for _, p := range perms {
		if p.ModuleID != nil {
			granted[*p.ModuleID] = struct{}{}
		}
	}
	if len(granted) == 0 {
		return keep, nil
	}

	// Post-order walk: a node stays when it is granted or any child stayed.
	var walk func(id uuid.UUID) bool
	walk = func(id uuid.UUID) bool {
		visible := false
		for _, child := range children[id] {
			if walk(child) {
				visible = true
			}
		}
		if _, ok := granted[id]; ok {
			visible = true
		}
		if visible {
			keep[id] = struct{}{}
		}
		return visible
	}
	for _, root := range roots {
		walk(root)
	}
	return keep, nil
}

func cloneTree(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		cp := *n
		cp.Children = cloneTree(n.Children)
		out[i] = &cp
	}
	return out
}
