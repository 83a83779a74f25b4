package domain

// NavigationEntry is one menu item in the rendered navigation tree.
// Computed fresh on every render, never persisted.
type NavigationEntry struct {
	Label    string            `json:"label"`
	Path     string            `json:"path"`
	Icon     string            `json:"icon,omitempty"`
	Current  bool              `json:"current"`
	Expanded bool              `json:"expanded,omitempty"`
	Children []NavigationEntry `json:"children,omitempty"`
}
