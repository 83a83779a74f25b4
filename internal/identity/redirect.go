package identity

import "github.com/distro-app/gateway/internal/domain"

// Landing pages by surface and role.
const (
	AdminDashboardPath   = "/admin/dashboard"
	DashboardPath        = "/dashboard"
	FieldDashboardPath   = "/field/dashboard"
	SupportDashboardPath = "/support"
)

// PostLoginRedirect picks the landing page after a successful login.
// Public logins always land on the admin dashboard; tenant logins route by
// role with a fallback for unrecognized roles, never a hard failure.
func PostLoginRedirect(tc domain.TenantContext, role string) string {
	if tc.Kind == domain.TenantPublic {
		return AdminDashboardPath
	}

	switch role {
	case domain.RoleFieldTech:
		return FieldDashboardPath
	case domain.RoleCustomerService:
		return SupportDashboardPath
	case domain.RoleAdmin, domain.RoleSupervisor:
		return DashboardPath
	default:
		return DashboardPath
	}
}
