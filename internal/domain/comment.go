package domain

import "time"

// Comment is a message left on a bug or bug report.
type Comment struct {
	ID        string
	ItemKind  ItemKind
	ItemID    string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
