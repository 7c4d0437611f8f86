package domain

import "time"

// Comment belongs to a post. Anonymous comments carry author name/email;
// comments by logged-in users reference the account instead.
type Comment struct {
	ID          string
	PostID      string
	AccountID   *string
	AuthorName  string
	AuthorEmail string
	Content     string
	Approved    bool
	CreatedAt   time.Time
}
