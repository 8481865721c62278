package identity

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Seed is a declarative bootstrap of modules, permissions and roles, usually
// loaded from a YAML file shipped with the application.
//
//	modules:
//	  - name: User management
//	    slug: users
//	    order: 1
//	permissions:
//	  - name: View users
//	    slug: users.view
//	    module: users
//	roles:
//	  - name: Administrator
//	    slug: admin
//	    category: system
//	    permissions: [users.view]
type Seed struct {
	Modules     []SeedModule     `yaml:"modules"`
	Permissions []SeedPermission `yaml:"permissions"`
	Roles       []SeedRole       `yaml:"roles"`
}

type SeedModule struct {
	Name   string `yaml:"name"`
	Slug   string `yaml:"slug"`
	Parent string `yaml:"parent,omitempty"`
	Order  int    `yaml:"order"`
}

type SeedPermission struct {
	Name   string `yaml:"name"`
	Slug   string `yaml:"slug"`
	Module string `yaml:"module,omitempty"`
}

type SeedRole struct {
	Name        string   `yaml:"name"`
	Slug        string   `yaml:"slug"`
	Category    string   `yaml:"category,omitempty"`
	Permissions []string `yaml:"permissions"`
}

// ParseSeed decodes a YAML seed definition.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &seed, nil
}

// Apply creates the seeded records in store. Records whose slug already
// exists are left untouched, so Apply is safe to run on every startup.
// Everything seeded is created active.
func (s *Seed) Apply(ctx context.Context, store Store) error {
	// Modules first, then parent links, so ordering inside the file does
	// not matter.
	for _, sm := range s.Modules {
		if _, err := store.ModuleBySlug(ctx, sm.Slug); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		m := &Module{Name: sm.Name, Slug: sm.Slug, Order: sm.Order, Active: true}
		if err := store.CreateModule(ctx, m); err != nil {
			return fmt.Errorf("seed module %q: %w", sm.Slug, err)
		}
	}
	for _, sm := range s.Modules {
		if sm.Parent == "" {
			continue
		}
		child, err := store.ModuleBySlug(ctx, sm.Slug)
		if err != nil {
			return err
		}
		if child.ParentID != nil {
			continue
		}
		parent, err := store.ModuleBySlug(ctx, sm.Parent)
		if err != nil {
			return fmt.Errorf("seed module %q: unknown parent %q: %w", sm.Slug, sm.Parent, err)
		}
		if err := store.SetModuleParent(ctx, child.ID, &parent.ID); err != nil {
			return fmt.Errorf("seed module %q: %w", sm.Slug, err)
		}
	}

	for _, sp := range s.Permissions {
		if _, err := store.PermissionBySlug(ctx, sp.Slug); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		p := &Permission{Name: sp.Name, Slug: sp.Slug, Active: true}
		if sp.Module != "" {
			m, err := store.ModuleBySlug(ctx, sp.Module)
			if err != nil {
				return fmt.Errorf("seed permission %q: unknown module %q: %w", sp.Slug, sp.Module, err)
			}
			p.ModuleID = &m.ID
		}
		if err := store.CreatePermission(ctx, p); err != nil {
			return fmt.Errorf("seed permission %q: %w", sp.Slug, err)
		}
	}

	for _, sr := range s.Roles {
		role, err := store.RoleBySlug(ctx, sr.Slug)
		if errors.Is(err, ErrNotFound) {
			role = &Role{Name: sr.Name, Slug: sr.Slug, Category: sr.Category, Active: true}
			if err := store.CreateRole(ctx, role); err != nil {
				return fmt.Errorf("seed role %q: %w", sr.Slug, err)
			}
		} else if err != nil {
			return err
		}
		for _, slug := range sr.Permissions {
			perm, err := store.PermissionBySlug(ctx, slug)
			if err != nil {
				return fmt.Errorf("seed role %q: unknown permission %q: %w", sr.Slug, slug, err)
			}
			if err := store.AttachPermission(ctx, role.ID, perm.ID); err != nil {
				return fmt.Errorf("seed role %q: %w", sr.Slug, err)
			}
		}
	}

	return nil
}
