package workflow

import "github.com/garyjia/content-workflow/internal/domain/entity"

// Kind tags a state machine with the entity kind it governs
type Kind interface {
	WorkflowType() entity.WorkflowType
}

// ContentFlow governs content items
type ContentFlow struct{}

// WorkflowType implements Kind
func (ContentFlow) WorkflowType() entity.WorkflowType { return entity.WorkflowTypeContent }

// CommentFlow governs comments
type CommentFlow struct{}

// WorkflowType implements Kind
func (CommentFlow) WorkflowType() entity.WorkflowType { return entity.WorkflowTypeComment }

// UserFlow governs user accounts
type UserFlow struct{}

// WorkflowType implements Kind
func (UserFlow) WorkflowType() entity.WorkflowType { return entity.WorkflowTypeUser }

// CustomFlow governs caller-defined entities
type CustomFlow struct{}

// WorkflowType implements Kind
func (CustomFlow) WorkflowType() entity.WorkflowType { return entity.WorkflowTypeCustom }

// TypeOf returns the workflow type governed by K
func TypeOf[K Kind]() entity.WorkflowType {
	var k K
	return k.WorkflowType()
}
