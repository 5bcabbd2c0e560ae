package domain

import "time"

// Tracker is a time-boxed container of bugs and bug reports within a project.
type Tracker struct {
	ID        string
	ProjectID string
	Title     string
	IsActive  bool
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedAt time.Time
	// DeveloperIDs lists the developers enrolled on the tracker.
	DeveloperIDs []string
}

// HasDeveloper reports whether userID may be made responsible for items on this tracker.
// A tracker without enrolled developers accepts any developer.
func (t *Tracker) HasDeveloper(userID string) bool {
	if len(t.DeveloperIDs) == 0 {
		return true
	}
	for _, id := range t.DeveloperIDs {
		if id == userID {
			return true
		}
	}
	return false
}
