// Package menu builds permission-filtered navigation trees from the module
// catalog. A module appears in a principal's menu when the principal holds a
// permission scoped to it or to one of its descendants; ancestors of visible
// modules stay so the path to a leaf is never broken, and everything else is
// pruned. Siblings are ordered by sort order, ties broken by ID.
//
// Build fails closed: any resolution error yields an empty menu, never a
// partial or over-permissive one. Trees are cached per principal and the
// Builder implements authz.Invalidator so grant/revoke mutations drop stale
// menus together with stale permission sets.
package menu
