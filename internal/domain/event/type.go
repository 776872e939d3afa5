package event

// Type identifies the type of domain event
type Type string

const (
	TypeTransitionCompleted Type = "transition.completed"
	TypeApprovalRecorded    Type = "approval.recorded"
	TypeApprovalRequested   Type = "approval.requested"
	TypeApprovalDecided     Type = "approval.decided"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTransitionCompleted,
		TypeApprovalRecorded,
		TypeApprovalRequested,
		TypeApprovalDecided:
		return true
	default:
		return false
	}
}
