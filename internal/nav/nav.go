// Package nav computes the visible navigation tree as a pure function of the
// current identity and location. Entries are rebuilt on every render and the
// result always agrees with what the route guard would allow.
package nav

import (
	"strings"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/identity"
)

// Build returns the ordered navigation entries for an identity at a path.
// A nil identity (anonymous caller) gets no navigation at all.
//
// Rules, in fixed order, each appending at most one top-level entry:
//  1. Dashboard, always; field techs land on the field dashboard.
//  2. Infrastructure, unless the role is customer_service.
//  3. Field Tools, only for field techs.
//  4. Users, when the identity may view the full roster or its team;
//     children: roster and invitations.
//  5. Analytics, for admins and supervisors.
//  6. Settings, admins only.
func Build(ident *domain.Identity, currentPath string) []domain.NavigationEntry {
	if ident == nil {
		return nil
	}

	entries := make([]domain.NavigationEntry, 0, 6)

	dashboardPath := identity.DashboardPath
	if ident.Role == domain.RoleFieldTech {
		dashboardPath = identity.FieldDashboardPath
	}
	entries = append(entries, domain.NavigationEntry{
		Label: "Dashboard",
		Path:  dashboardPath,
		Icon:  "home",
	})

	if ident.Role != domain.RoleCustomerService {
		entries = append(entries, domain.NavigationEntry{
			Label: "Infrastructure",
			Path:  "/infrastructure",
			Icon:  "map",
		})
	}

	if ident.Role == domain.RoleFieldTech {
		entries = append(entries, domain.NavigationEntry{
			Label: "Field Tools",
			Path:  "/field/tools",
			Icon:  "wrench",
		})
	}

	if ident.HasPermission("view_all_users") || ident.HasPermission("view_team_users") {
		entries = append(entries, domain.NavigationEntry{
			Label: "Users",
			Path:  "/users",
			Icon:  "users",
			Children: []domain.NavigationEntry{
				{Label: "Roster", Path: "/users", Icon: "list"},
				{Label: "Invitations", Path: "/users/invitations", Icon: "mail"},
			},
		})
	}

	if ident.Role == domain.RoleAdmin || ident.Role == domain.RoleSupervisor {
		entries = append(entries, domain.NavigationEntry{
			Label: "Analytics",
			Path:  "/analytics",
			Icon:  "chart",
		})
	}

	if ident.Role == domain.RoleAdmin {
		entries = append(entries, domain.NavigationEntry{
			Label: "Settings",
			Path:  "/settings",
			Icon:  "cog",
		})
	}

	markCurrent(entries, currentPath)
	return entries
}

// markCurrent flags entries whose path prefixes the current location. A
// current parent expands its children, with exact-match highlighting among
// them.
func markCurrent(entries []domain.NavigationEntry, currentPath string) {
	for i := range entries {
		e := &entries[i]
		if !matches(e.Path, currentPath) {
			continue
		}
		e.Current = true
		if len(e.Children) > 0 {
			e.Expanded = true
			for j := range e.Children {
				e.Children[j].Current = e.Children[j].Path == currentPath
			}
		}
	}
}

func matches(entryPath, currentPath string) bool {
	if entryPath == currentPath {
		return true
	}
	return strings.HasPrefix(currentPath, entryPath+"/")
}
