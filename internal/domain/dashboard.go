package domain

import "time"

// DashboardSummary is the aggregated operational view served to the
// dashboard: staff, asset and zone counts rolled up in one response.
type DashboardSummary struct {
	TotalUsers  int            `json:"total_users"`
	ActiveUsers int            `json:"active_users"`
	UsersByRole map[string]int `json:"users_by_role"`
	TotalAssets int            `json:"total_assets"`
	TotalZones  int            `json:"total_zones"`
	GeneratedAt time.Time      `json:"generated_at"`
}
