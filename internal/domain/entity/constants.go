package entity

// WorkflowType partitions states and transitions by the kind of entity they govern
type WorkflowType string

// Workflow types
const (
	WorkflowTypeContent WorkflowType = "content"
	WorkflowTypeComment WorkflowType = "comment"
	WorkflowTypeUser    WorkflowType = "user"
	WorkflowTypeCustom  WorkflowType = "custom"
)

var validWorkflowTypes = map[WorkflowType]bool{
	WorkflowTypeContent: true,
	WorkflowTypeComment: true,
	WorkflowTypeUser:    true,
	WorkflowTypeCustom:  true,
}

// IsValid returns true if the workflow type is known
func (t WorkflowType) IsValid() bool {
	return validWorkflowTypes[t]
}

// String returns the string representation of the workflow type
func (t WorkflowType) String() string {
	return string(t)
}

// RoleSuperadmin bypasses every role requirement
const RoleSuperadmin = "superadmin"

// StatePublished is the final state name that stamps a publish timestamp
const StatePublished = "published"
