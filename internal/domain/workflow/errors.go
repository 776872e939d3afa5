package workflow

import "errors"

var (
	// ErrNotFound is returned when an entity, state, transition or approval does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when the entity is not in the transition's source state
	ErrInvalidState = errors.New("invalid state")

	// ErrPermissionDenied is returned when the caller's role may not fire a transition
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDuplicateVote is returned when an approver votes twice on the same transition
	ErrDuplicateVote = errors.New("duplicate vote")

	// ErrAlreadyDecided is returned when a pending approval has already been resolved
	ErrAlreadyDecided = errors.New("approval already decided")

	// ErrNotDesignatedApprover is returned when the caller does not own the approval
	ErrNotDesignatedApprover = errors.New("not the designated approver")

	// ErrDuplicateName is returned when a state name is already used within a workflow type
	ErrDuplicateName = errors.New("duplicate state name")

	// ErrDuplicateEdge is returned when a transition already exists between two states
	ErrDuplicateEdge = errors.New("duplicate transition edge")

	// ErrInvalidDefinition is returned for malformed workflow configuration
	ErrInvalidDefinition = errors.New("invalid workflow definition")
)

// IsConflict reports configuration or voting conflicts the caller can resolve by changing input
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrDuplicateEdge) ||
		errors.Is(err, ErrDuplicateVote) ||
		errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrInvalidState)
}
