package model

import "time"

// SavedSession is a named snapshot of every tab open when it was saved.
// Sessions are immutable once saved; the only change allowed is deletion.
type SavedSession struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Tabs      []Tab     `json:"tabs"`
}

// TabGroup is a named, user-curated collection of tabs.
// Unlike sessions, groups can be renamed and have individual tabs removed.
type TabGroup struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Tabs      []Tab     `json:"tabs"`
}

// SessionNamed reports whether any session in the list uses name.
func SessionNamed(sessions []SavedSession, name string) bool {
	for _, s := range sessions {
		if s.Name == name {
			return true
		}
	}
	return false
}

// GroupNamed reports whether any group in the list uses name.
func GroupNamed(groups []TabGroup, name string) bool {
	for _, g := range groups {
		if g.Name == name {
			return true
		}
	}
	return false
}
