package access

// MenuEntry is one navigable item of the sidebar.
type MenuEntry struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// FilterMenu keeps the entries p can reach, preserving order.
func FilterMenu(s *Service, p *Principal, entries []MenuEntry) []MenuEntry {
	visible := make([]MenuEntry, 0, len(entries))
	for _, e := range entries {
		if s.CanAccessPath(p, e.Path) {
			visible = append(visible, e)
		}
	}
	return visible
}
