package menu_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/authz"
	"github.com/guardkit/guardkit/pkg/identity"
	"github.com/guardkit/guardkit/pkg/menu"
)

type catalog struct {
	store   *identity.MemoryStore
	modules map[string]*identity.Module
}

// newCatalog builds:
//
//	dashboard(1)
//	admin(2) -> users(1), settings(2)
//	billing(3) -> invoices(1)
//	archive(4, inactive) -> reports(1)
func newCatalog(t *testing.T) *catalog {
	t.Helper()
	ctx := context.Background()
	store := identity.NewMemoryStore()
	c := &catalog{store: store, modules: make(map[string]*identity.Module)}

	add := func(slug string, order int, active bool, parent string) {
		m := &identity.Module{Name: slug, Slug: slug, Order: order, Active: active}
		if parent != "" {
			m.ParentID = &c.modules[parent].ID
		}
		require.NoError(t, store.CreateModule(ctx, m))
		c.modules[slug] = m
	}

	add("dashboard", 1, true, "")
	add("admin", 2, true, "")
	add("users", 1, true, "admin")
	add("settings", 2, true, "admin")
	add("billing", 3, true, "")
	add("invoices", 1, true, "billing")
	add("archive", 4, false, "")
	add("reports", 1, true, "archive")
	return c
}

func (c *catalog) grant(t *testing.T, principalID uuid.UUID, permSlug, moduleSlug string) {
	t.Helper()
	ctx := context.Background()
	perm := &identity.Permission{Name: permSlug, Slug: permSlug, Active: true, ModuleID: &c.modules[moduleSlug].ID}
	require.NoError(t, c.store.CreatePermission(ctx, perm))
	require.NoError(t, c.store.GrantPermission(ctx, principalID, perm.ID))
}

func slugs(nodes []*menu.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Slug)
	}
	return out
}

func TestBuilder_PrunesToGrantedBranches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	principal := &identity.Principal{Email: "nav@example.com", Active: true}
	require.NoError(t, c.store.CreatePrincipal(ctx, principal))
	c.grant(t, principal.ID, "view-users", "users")

	builder := menu.NewBuilder(c.store, authz.NewResolver(c.store))
	tree := builder.Build(ctx, principal.ID)

	// Only the admin branch survives; the ancestor is kept, the sibling pruned.
	require.Equal(t, []string{"admin"}, slugs(tree))
	require.Equal(t, []string{"users"}, slugs(tree[0].Children))
	assert.Empty(t, tree[0].Children[0].Children)
}

func TestBuilder_MultipleBranchesOrdered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	principal := &identity.Principal{Email: "multi@example.com", Active: true}
	require.NoError(t, c.store.CreatePrincipal(ctx, principal))
	c.grant(t, principal.ID, "view-invoices", "invoices")
	c.grant(t, principal.ID, "view-dashboard", "dashboard")
	c.grant(t, principal.ID, "edit-settings", "settings")

	builder := menu.NewBuilder(c.store, authz.NewResolver(c.store))
	tree := builder.Build(ctx, principal.ID)

	assert.Equal(t, []string{"dashboard", "admin", "billing"}, slugs(tree))
	assert.Equal(t, []string{"settings"}, slugs(tree[1].Children))
	assert.Equal(t, []string{"invoices"}, slugs(tree[2].Children))
}

func TestBuilder_OrderTiesBreakOnID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := identity.NewMemoryStore()
	idA := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	idB := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	// Insert in reverse to prove ordering is not insertion order.
	require.NoError(t, store.CreateModule(ctx, &identity.Module{ID: idB, Name: "b", Slug: "b", Order: 5, Active: true}))
	require.NoError(t, store.CreateModule(ctx, &identity.Module{ID: idA, Name: "a", Slug: "a", Order: 5, Active: true}))

	principal := &identity.Principal{Email: "ties@example.com", Active: true}
	require.NoError(t, store.CreatePrincipal(ctx, principal))
	for _, m := range []uuid.UUID{idA, idB} {
		mid := m
		perm := &identity.Permission{Name: "p-" + mid.String(), Slug: "p-" + mid.String(), Active: true, ModuleID: &mid}
		require.NoError(t, store.CreatePermission(ctx, perm))
		require.NoError(t, store.GrantPermission(ctx, principal.ID, perm.ID))
	}

	builder := menu.NewBuilder(store, authz.NewResolver(store))
	tree := builder.Build(ctx, principal.ID)
	assert.Equal(t, []string{"a", "b"}, slugs(tree))
}

func TestBuilder_InactiveModuleCutsSubtree(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	principal := &identity.Principal{Email: "archived@example.com", Active: true}
	require.NoError(t, c.store.CreatePrincipal(ctx, principal))
	// reports is active, but its parent archive is not.
	c.grant(t, principal.ID, "view-reports", "reports")

	builder := menu.NewBuilder(c.store, authz.NewResolver(c.store))
	assert.Empty(t, builder.Build(ctx, principal.ID))
}

func TestBuilder_SuperAdminSeesAllActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	principal := &identity.Principal{Email: "root@example.com", Active: true}
	require.NoError(t, c.store.CreatePrincipal(ctx, principal))
	super := &identity.Role{Name: "super-admin", Slug: "super-admin", Active: true}
	require.NoError(t, c.store.CreateRole(ctx, super))
	require.NoError(t, c.store.AssignRole(ctx, principal.ID, super.ID))

	builder := menu.NewBuilder(c.store, authz.NewResolver(c.store))
	tree := builder.Build(ctx, principal.ID)

	// archive is inactive, so it and reports stay hidden even for super-admin.
	assert.Equal(t, []string{"dashboard", "admin", "billing"}, slugs(tree))
	assert.Equal(t, []string{"users", "settings"}, slugs(tree[1].Children))
}

func TestBuilder_NoGrantsNoMenu(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	principal := &identity.Principal{Email: "empty@example.com", Active: true}
	require.NoError(t, c.store.CreatePrincipal(ctx, principal))

	builder := menu.NewBuilder(c.store, authz.NewResolver(c.store))
	assert.Empty(t, builder.Build(ctx, principal.ID))
}

type failingSource struct{}

func (failingSource) UserPermissions(context.Context, uuid.UUID) ([]identity.Permission, error) {
	return nil, errors.New("source down")
}

func (failingSource) HasRole(context.Context, uuid.UUID, string) bool { return false }

func TestBuilder_FailsClosedToEmptyMenu(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	builder := menu.NewBuilder(c.store, failingSource{})

	tree := builder.Build(ctx, uuid.New())
	require.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestBuilder_CacheInvalidatedOnGrant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	principal := &identity.Principal{Email: "growing@example.com", Active: true}
	require.NoError(t, c.store.CreatePrincipal(ctx, principal))
	perm := &identity.Permission{Name: "view-users", Slug: "view-users", Active: true, ModuleID: &c.modules["users"].ID}
	require.NoError(t, c.store.CreatePermission(ctx, perm))

	resolver := authz.NewResolver(c.store, authz.WithCache(authz.NewMemoryCache(16, time.Minute)))
	builder := menu.NewBuilder(c.store, resolver, menu.WithCache(16, time.Minute))
	manager := authz.NewManager(c.store, authz.WithInvalidators(resolver, builder))

	assert.Empty(t, builder.Build(ctx, principal.ID))

	require.NoError(t, manager.GrantPermission(ctx, principal.ID, "view-users"))
	tree := builder.Build(ctx, principal.ID)
	require.Equal(t, []string{"admin"}, slugs(tree))

	require.NoError(t, manager.RevokePermission(ctx, principal.ID, "view-users"))
	assert.Empty(t, builder.Build(ctx, principal.ID))
}

func TestBuilder_CachedTreeIsCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newCatalog(t)
	principal := &identity.Principal{Email: "mutate@example.com", Active: true}
	require.NoError(t, c.store.CreatePrincipal(ctx, principal))
	c.grant(t, principal.ID, "view-users", "users")

	builder := menu.NewBuilder(c.store, authz.NewResolver(c.store), menu.WithCache(16, time.Minute))

	first := builder.Build(ctx, principal.ID)
	require.NotEmpty(t, first)
	first[0].Name = "tampered"
	first[0].Children = nil

	second := builder.Build(ctx, principal.ID)
	require.Equal(t, "admin", second[0].Name)
	require.Equal(t, []string{"users"}, slugs(second[0].Children))
}
