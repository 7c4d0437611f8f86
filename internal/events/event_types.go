package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPostPublished   EventType = "post_published"
	EventCommentCreated  EventType = "comment_created"
	EventCommentApproved EventType = "comment_approved"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PostPublishedPayload payload.
type PostPublishedPayload struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// CommentCreatedPayload payload.
type CommentCreatedPayload struct {
	PostID      string `json:"post_id"`
	AuthorName  string `json:"author_name,omitempty"`
	BodyPreview string `json:"body_preview"`
}

// CommentApprovedPayload payload.
type CommentApprovedPayload struct {
	PostID string `json:"post_id"`
}
