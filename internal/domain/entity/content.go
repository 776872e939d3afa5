package entity

import "time"

// Content is the entity governed by the content workflow.
// StateID references workflow_states; Status is a read projection of the state name.
type Content struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	AuthorID    int64      `json:"author_id"`
	StateID     int64      `json:"state_id"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WorkflowEntity is the part of an externally owned row the engine reads
type WorkflowEntity struct {
	ID       int64
	StateID  int64
	AuthorID int64
}
