// Package tenant derives tenant identity from the request host, before any
// downstream handler runs. Classification is pure and deterministic: the same
// host always yields the same TenantContext.
package tenant

import (
	"net"
	"strings"

	"github.com/distro-app/gateway/internal/domain"
)

// Resolver classifies request hosts against the platform's base domain.
type Resolver struct {
	baseDomain string
}

// NewResolver creates a resolver for the given base domain (e.g. "distro.app").
func NewResolver(baseDomain string) *Resolver {
	return &Resolver{baseDomain: strings.ToLower(strings.TrimSpace(baseDomain))}
}

// Resolve classifies a request host. Rules, in order:
//
//  1. The bare base domain or a loopback root is the public admin surface.
//  2. A single non-empty label in front of the base domain addresses that
//     utility's surface; the label is the tenant identifier.
//  3. Anything else (empty, malformed, foreign hosts, nested subdomains) is
//     unknown: the request proceeds without tenant metadata and callers must
//     handle that case explicitly.
func (r *Resolver) Resolve(host string) domain.TenantContext {
	cleaned := strings.ToLower(strings.TrimSpace(stripPort(host)))
	if cleaned == "" {
		return domain.TenantContext{Kind: domain.TenantUnknown}
	}

	if cleaned == r.baseDomain || isLoopbackRoot(cleaned) {
		return domain.TenantContext{
			Kind:       domain.TenantPublic,
			Identifier: domain.PublicIdentifier,
			Domain:     cleaned,
		}
	}

	if label, ok := strings.CutSuffix(cleaned, "."+r.baseDomain); ok {
		if label != "" && !strings.Contains(label, ".") {
			return domain.TenantContext{
				Kind:       domain.TenantScoped,
				Identifier: label,
				Domain:     cleaned,
			}
		}
	}

	return domain.TenantContext{Kind: domain.TenantUnknown, Domain: cleaned}
}

// stripPort removes a :port suffix if present. Malformed hosts are returned
// unchanged and fall through to the unknown classification.
func stripPort(host string) string {
	if !strings.Contains(host, ":") {
		return host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopbackRoot(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
