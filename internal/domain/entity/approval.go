package entity

import "time"

// Approval is one approver's vote on an (entity, transition) pair.
// Approved is nil while the vote is pending.
type Approval struct {
	ID           int64      `json:"id"`
	EntityID     int64      `json:"entity_id"`
	TransitionID int64      `json:"transition_id"`
	ApproverID   int64      `json:"approver_id"`
	Approved     *bool      `json:"approved"`
	Comment      string     `json:"comment"`
	CreatedAt    time.Time  `json:"created_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// IsPending returns true if the approver has not decided yet
func (a *Approval) IsPending() bool {
	return a.Approved == nil
}

// IsLive returns true until the transition the vote belongs to has executed
func (a *Approval) IsLive() bool {
	return a.SupersededAt == nil
}

// IsApproved returns true for a positive vote
func (a *Approval) IsApproved() bool {
	return a.Approved != nil && *a.Approved
}
