package domain

import "time"

// Post is the domain model for published content.
type Post struct {
	ID          string
	Title       string
	Content     string
	Excerpt     string
	Slug        string
	Published   bool
	PublishedAt *time.Time
	AuthorID    string
	Tags        []Tag
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
