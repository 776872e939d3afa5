package workflow

import (
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
)

// ResultStatus discriminates what an engine call did
type ResultStatus string

const (
	// StatusCompleted means the entity moved to the transition's destination
	StatusCompleted ResultStatus = "completed"
	// StatusPendingApproval means a vote was recorded below quorum
	StatusPendingApproval ResultStatus = "pending_approval"
	// StatusApproved means an inbox approval was recorded below quorum
	StatusApproved ResultStatus = "approved"
	// StatusRejected means an inbox rejection was recorded
	StatusRejected ResultStatus = "rejected"
)

// Result is the outcome of ExecuteTransition and ApproveOrReject
type Result struct {
	Status            ResultStatus `json:"status"`
	FromState         string       `json:"from_state,omitempty"`
	ToState           string       `json:"to_state,omitempty"`
	Transition        string       `json:"transition,omitempty"`
	ApprovalsReceived int          `json:"approvals_received,omitempty"`
	ApprovalsRequired int          `json:"approvals_required,omitempty"`

	// AlreadyCompleted is set when another caller executed the transition first
	AlreadyCompleted bool `json:"already_completed,omitempty"`
}

// AvailableTransition is a transition the caller may fire, with the live vote tally
// when it is approval-gated
type AvailableTransition struct {
	*entity.Transition
	Tally *domainwf.Tally `json:"tally,omitempty"`
}
