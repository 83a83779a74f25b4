package domain

// TenantKind classifies the surface a request is addressed to.
type TenantKind int

const (
	// TenantUnknown means the host did not match the platform's base domain.
	// Requests proceed without tenant metadata; downstream code must treat
	// this as a distinct case, never as Public.
	TenantUnknown TenantKind = iota
	// TenantPublic is the root administrative surface that manages utilities.
	TenantPublic
	// TenantScoped is a single water utility addressed by subdomain.
	TenantScoped
)

func (k TenantKind) String() string {
	switch k {
	case TenantPublic:
		return "public"
	case TenantScoped:
		return "tenant"
	default:
		return "unknown"
	}
}

// PublicIdentifier is the reserved identifier for the public admin surface.
const PublicIdentifier = "public"

// TenantContext is the per-request tenant identity derived from the Host
// header. It is recomputed on every request and never persisted.
// Invariant: Kind == TenantPublic iff Identifier == PublicIdentifier.
type TenantContext struct {
	Kind        TenantKind `json:"kind"`
	Identifier  string     `json:"identifier"`
	Domain      string     `json:"domain"`
	DisplayName string     `json:"display_name,omitempty"`
}

// Resolved reports whether the host matched a known surface.
func (t TenantContext) Resolved() bool {
	return t.Kind != TenantUnknown
}

// Utility is a tenant record as served by the public tenant directory.
type Utility struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	Domain       string `json:"domain,omitempty"`
	IsActive     bool   `json:"is_active"`
}
