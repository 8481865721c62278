package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Resolver extracts a tenant identifier from an HTTP request. An empty
// string means the request carries no tenant signal; that is not an error.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) { return f(r) }

// SubdomainResolver extracts the tenant slug from the request subdomain,
// e.g. "acme" from acme.app.com.
type SubdomainResolver struct {
	// Suffix is the base domain to strip, e.g. ".app.com". When empty the
	// first host label is used as long as the host has three or more
	// labels.
	Suffix string
}

// NewSubdomainResolver creates a subdomain resolver.
func NewSubdomainResolver(suffix string) *SubdomainResolver {
	return &SubdomainResolver{Suffix: suffix}
}

func (r *SubdomainResolver) Resolve(req *http.Request) (string, error) {
	host := stripPort(req.Host)

	if r.Suffix != "" {
		if !strings.HasSuffix(host, r.Suffix) {
			return "", nil
		}
		host = strings.TrimSuffix(host, r.Suffix)
	} else if strings.Count(host, ".") < 2 {
		// Bare domain.tld carries no subdomain.
		return "", nil
	}

	label, _, _ := strings.Cut(host, ".")
	if label == "www" || label == "" {
		return "", nil
	}
	return label, nil
}

// DomainResolver uses the full request host as the identifier, matching
// tenants with dedicated custom domains.
type DomainResolver struct{}

// NewDomainResolver creates a full-domain resolver.
func NewDomainResolver() *DomainResolver {
	return &DomainResolver{}
}

func (r *DomainResolver) Resolve(req *http.Request) (string, error) {
	return stripPort(req.Host), nil
}

// HeaderResolver extracts the tenant identifier from an HTTP header.
type HeaderResolver struct {
	Header string
}

// NewHeaderResolver creates a header resolver. An empty name defaults to
// X-Tenant-ID.
func NewHeaderResolver(header string) *HeaderResolver {
	if header == "" {
		header = "X-Tenant-ID"
	}
	return &HeaderResolver{Header: header}
}

func (r *HeaderResolver) Resolve(req *http.Request) (string, error) {
	return req.Header.Get(r.Header), nil
}

// ParamResolver extracts the tenant identifier from a query parameter.
type ParamResolver struct {
	Param string
}

// NewParamResolver creates a query parameter resolver. An empty name
// defaults to "tenant".
func NewParamResolver(param string) *ParamResolver {
	if param == "" {
		param = "tenant"
	}
	return &ParamResolver{Param: param}
}

func (r *ParamResolver) Resolve(req *http.Request) (string, error) {
	return req.URL.Query().Get(r.Param), nil
}

// CompositeResolver tries multiple resolvers in order and returns the first
// non-empty identifier.
type CompositeResolver struct {
	resolvers []Resolver
}

// NewCompositeResolver creates a composite over the given resolvers.
func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{resolvers: resolvers}
}

func (c *CompositeResolver) Resolve(r *http.Request) (string, error) {
	var errs []error
	for _, resolver := range c.resolvers {
		id, err := resolver.Resolve(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("tenant resolvers: %w", errors.Join(errs...))
	}
	return "", nil
}

func stripPort(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}
