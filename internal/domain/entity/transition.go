package entity

import "time"

// Transition is a directed edge between two states of the same workflow type.
// At most one transition exists per ordered (FromStateID, ToStateID) pair.
type Transition struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	FromStateID      int64     `json:"from_state_id"`
	ToStateID        int64     `json:"to_state_id"`
	RequiredRoles    []string  `json:"required_roles"`
	RequiresApproval bool      `json:"requires_approval"`
	ApprovalCount    int       `json:"approval_count"`
	NotifyRoles      []string  `json:"notify_roles"`
	NotifyAuthor     bool      `json:"notify_author"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`

	// Resolved endpoints, populated by repositories that join workflow_states
	FromState *State `json:"from_state,omitempty"`
	ToState   *State `json:"to_state,omitempty"`
}

// Quorum returns the number of positive votes needed to execute the transition
func (t *Transition) Quorum() int {
	if !t.RequiresApproval || t.ApprovalCount < 1 {
		return 1
	}
	return t.ApprovalCount
}
