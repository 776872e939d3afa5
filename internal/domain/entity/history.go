package entity

import "time"

// History is one immutable audit entry written per executed transition
type History struct {
	ID             int64        `json:"id"`
	EntityID       int64        `json:"entity_id"`
	WorkflowType   WorkflowType `json:"workflow_type"`
	FromStateID    int64        `json:"from_state_id"`
	ToStateID      int64        `json:"to_state_id"`
	FromState      string       `json:"from_state"`
	ToState        string       `json:"to_state"`
	UserID         int64        `json:"user_id"`
	TransitionID   int64        `json:"transition_id"`
	TransitionName string       `json:"transition_name"`
	Comment        string       `json:"comment"`
	CreatedAt      time.Time    `json:"created_at"`
}
