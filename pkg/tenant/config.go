package tenant

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects the resolution strategy.
type Mode string

const (
	ModeSubdomain Mode = "subdomain"
	ModeDomain    Mode = "domain"
	ModeHeader    Mode = "header"
	ModeParam     Mode = "param"
)

// Config holds tenant resolution settings.
type Config struct {
	Mode          Mode          `env:"TENANT_MODE" envDefault:"subdomain"`
	DomainSuffix  string        `env:"TENANT_DOMAIN_SUFFIX"`
	Header        string        `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
	Param         string        `env:"TENANT_PARAM" envDefault:"tenant"`
	DefaultTenant string        `env:"TENANT_DEFAULT"`
	CacheSize     int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`
	CacheTTL      time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
}

// DefaultConfig returns settings matching the env defaults.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeSubdomain,
		Header:    "X-Tenant-ID",
		Param:     "tenant",
		CacheSize: 1000,
		CacheTTL:  5 * time.Minute,
	}
}

// NewResolverFromConfig builds the resolver selected by cfg.Mode. Unknown
// modes are rejected rather than silently falling back to a default.
func NewResolverFromConfig(cfg Config) (Resolver, error) {
	switch cfg.Mode {
	case ModeSubdomain:
		return NewSubdomainResolver(cfg.DomainSuffix), nil
	case ModeDomain:
		return NewDomainResolver(), nil
	case ModeHeader:
		return NewHeaderResolver(cfg.Header), nil
	case ModeParam:
		return NewParamResolver(cfg.Param), nil
	default:
		return nil, errors.Join(ErrInvalidMode, fmt.Errorf("tenant: unknown mode %q", cfg.Mode))
	}
}
