package models

import "time"

// Mod is a catalog entry. Author is the owner's username copied at creation
// time; AuthorID is the authoritative owner.
type Mod struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Author      string
	AuthorID    int64
	Rating      float64
	Downloads   int64
	CreatedAt   time.Time
	FilePath    string
	Versions    []string
}

// ModFilter narrows a catalog listing. Zero fields do not filter.
type ModFilter struct {
	// Category must match exactly.
	Category string
	// Query is a case-insensitive substring of the name, the description or
	// the author name.
	Query string
	// VersionPrefix keeps mods with at least one version starting with it,
	// so "1.20" matches "1.20.1".
	VersionPrefix string
	// AuthorID keeps mods owned by this user.
	AuthorID int64
}
