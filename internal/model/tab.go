// Package model defines the records shared by the local and remote stores:
// tabs, saved sessions, tab groups, user profiles, and the small vocabulary of
// tiers and result codes the storage adapter hands back to the display layer.
package model

// Tab is a snapshot of one browser tab at save time.
// ID is nil when the browser did not report an identifier for the tab.
type Tab struct {
	ID         *int   `json:"id,omitempty"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Pinned     bool   `json:"pinned"`
	FavIconURL string `json:"favIconUrl,omitempty"`
}

// TabID returns a pointer to id, for building tabs in literals.
func TabID(id int) *int {
	return &id
}

// HasID reports whether the tab carries exactly the given identifier.
func (t Tab) HasID(id int) bool {
	return t.ID != nil && *t.ID == id
}

// NormalizeTabIDs returns a copy of tabs in which every missing identifier
// is replaced by the tab's zero-based position in the slice.
// Tabs that already have an identifier keep it.
func NormalizeTabIDs(tabs []Tab) []Tab {
	out := make([]Tab, len(tabs))
	for i, tab := range tabs {
		if tab.ID == nil {
			tab.ID = TabID(i)
		} else {
			tab.ID = TabID(*tab.ID)
		}
		out[i] = tab
	}
	return out
}

// WithoutTab returns a copy of tabs with every tab whose identifier equals id
// removed. When no tab matches, the copy is identical to the input.
func WithoutTab(tabs []Tab, id int) []Tab {
	out := make([]Tab, 0, len(tabs))
	for _, tab := range tabs {
		if tab.HasID(id) {
			continue
		}
		out = append(out, tab)
	}
	return out
}
