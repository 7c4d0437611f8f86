package domain

import "time"

// Tag categorizes posts.
type Tag struct {
	ID          string
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}
