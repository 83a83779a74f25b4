// Package domain defines the core entities of the distro gateway: tenant
// contexts, identities, credentials, navigation entries and invitations.
// These models are independent of the upstream backend's wire formats.
package domain

import "time"

// Staff roles. Role drives coarse UI branching; the Permissions list on the
// identity snapshot is the ground truth for fine-grained checks.
const (
	RoleAdmin           = "admin"
	RoleSupervisor      = "supervisor"
	RoleFieldTech       = "field_tech"
	RoleCustomerService = "customer_service"
)

// Credentials is the token pair issued by the backend at login.
// The access token is short-lived, the refresh token outlives it.
type Credentials struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Identity is the authenticated user's snapshot: profile, role and the
// authoritative permission set. Cached client-side between revalidations.
type Identity struct {
	ID                      string     `json:"id"`
	Email                   string     `json:"email"`
	FirstName               string     `json:"first_name"`
	LastName                string     `json:"last_name"`
	FullName                string     `json:"full_name,omitempty"`
	EmployeeID              string     `json:"employee_id,omitempty"`
	PhoneNumber             string     `json:"phone_number,omitempty"`
	Role                    string     `json:"role"`
	Permissions             []string   `json:"permissions"`
	Avatar                  string     `json:"avatar,omitempty"`
	LocationTrackingConsent bool       `json:"location_tracking_consent"`
	LastActive              *time.Time `json:"last_active,omitempty"`
	IsActive                bool       `json:"is_active"`
}

// HasPermission tests membership in the snapshot's permission set.
func (i *Identity) HasPermission(name string) bool {
	if i == nil {
		return false
	}
	for _, p := range i.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasRole tests for an exact role match.
func (i *Identity) HasRole(role string) bool {
	return i != nil && i.Role == role
}

// DefaultPermissions returns the role's permission baseline as assigned by
// the backend. The identity snapshot remains authoritative; this table exists
// for stubs and tests that need a realistic permission set.
func DefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			"view_all_users", "create_user", "edit_user", "delete_user",
			"view_all_issues", "assign_issues", "close_issues",
			"view_analytics", "export_data", "manage_settings",
		}
	case RoleSupervisor:
		return []string{
			"view_team_users", "create_user", "edit_user",
			"view_all_issues", "assign_issues", "close_issues",
			"view_analytics",
		}
	case RoleFieldTech:
		return []string{
			"view_assigned_issues", "update_issue_status", "add_issue_notes",
			"report_new_issue", "view_assets",
		}
	case RoleCustomerService:
		return []string{
			"view_customer_issues", "create_customer_issue",
			"update_customer_issue", "send_notifications",
		}
	default:
		return nil
	}
}

// Location is a field technician's reported GPS position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Zero values mean "leave unchanged"; consent uses a pointer so that an
// explicit false revokes it.
type ProfileUpdate struct {
	FirstName               string `json:"first_name,omitempty"`
	LastName                string `json:"last_name,omitempty"`
	PhoneNumber             string `json:"phone_number,omitempty"`
	LocationTrackingConsent *bool  `json:"location_tracking_consent,omitempty"`
}
