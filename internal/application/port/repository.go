package port

import (
	"context"
	"time"

	"github.com/garyjia/content-workflow/internal/domain/entity"
)

// StateRepository defines persistence operations for workflow states
type StateRepository interface {
	// Create inserts a state; a name already used within the workflow type fails with workflow.ErrDuplicateName
	Create(ctx context.Context, state *entity.State) error

	// GetByID returns nil, nil when the state does not exist
	GetByID(ctx context.Context, id int64) (*entity.State, error)

	// GetByName returns nil, nil when the state does not exist
	GetByName(ctx context.Context, workflowType entity.WorkflowType, name string) (*entity.State, error)

	// GetInitial returns nil, nil when the workflow type has no initial state
	GetInitial(ctx context.Context, workflowType entity.WorkflowType) (*entity.State, error)

	// ListActive returns active states ordered by their display order
	ListActive(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.State, error)

	// ListAll returns every state of the workflow type, including inactive ones
	ListAll(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.State, error)

	// ClearInitial removes the initial flag from every state of the workflow type
	ClearInitial(ctx context.Context, workflowType entity.WorkflowType) error

	// SetInitial flags a single state as initial
	SetInitial(ctx context.Context, id int64) error
}

// TransitionRepository defines persistence operations for workflow transitions
type TransitionRepository interface {
	// Create inserts a transition; an existing edge fails with workflow.ErrDuplicateEdge
	Create(ctx context.Context, transition *entity.Transition) error

	// GetByID returns nil, nil when the transition does not exist
	GetByID(ctx context.Context, id int64) (*entity.Transition, error)

	// GetByEdge returns nil, nil when no transition connects the two states
	GetByEdge(ctx context.Context, fromStateID, toStateID int64) (*entity.Transition, error)

	// List returns every transition whose source state belongs to the workflow type
	List(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.Transition, error)
}

// ApprovalRepository defines persistence operations for the approval ledger.
// Only live rows (not yet superseded) take part in tallies and inbox queries.
type ApprovalRepository interface {
	// Create inserts a vote; a second live row for the same approver fails with workflow.ErrDuplicateVote
	Create(ctx context.Context, approval *entity.Approval) error

	// GetByID returns nil, nil when the approval does not exist
	GetByID(ctx context.Context, id int64) (*entity.Approval, error)

	// GetLive returns the approver's live row for the pair, or nil, nil
	GetLive(ctx context.Context, entityID, transitionID, approverID int64) (*entity.Approval, error)

	// ListLive returns all live rows for the pair
	ListLive(ctx context.Context, entityID, transitionID int64) ([]*entity.Approval, error)

	// ListPending returns live undecided rows, optionally for one approver
	ListPending(ctx context.Context, approverID *int64) ([]*entity.Approval, error)

	// Decide records an approver's decision on a pending or rejected row
	Decide(ctx context.Context, id int64, approved bool, comment string, decidedAt time.Time) error

	// Supersede retires every live row of the pair once its transition executed
	Supersede(ctx context.Context, entityID, transitionID int64, at time.Time) error
}

// HistoryRepository defines persistence operations for the append-only audit trail
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.History) error

	// ListByEntity returns entries newest first
	ListByEntity(ctx context.Context, workflowType entity.WorkflowType, entityID int64) ([]*entity.History, error)

	// GetLatest returns the newest entry, or nil when the entity has no history
	GetLatest(ctx context.Context, workflowType entity.WorkflowType, entityID int64) (*entity.History, error)
}

// EntityRepository is the narrow view the engine needs of an externally owned entity table
type EntityRepository interface {
	// GetWorkflowEntity returns nil, nil when the entity does not exist
	GetWorkflowEntity(ctx context.Context, id int64) (*entity.WorkflowEntity, error)

	// CompareAndSetState moves the entity to toStateID only if it still sits in fromStateID.
	// publishedAt, when non-nil, is stamped in the same statement.
	CompareAndSetState(ctx context.Context, id, fromStateID, toStateID int64, publishedAt *time.Time) (bool, error)
}

// ContentRepository defines persistence operations for content items
type ContentRepository interface {
	EntityRepository

	Create(ctx context.Context, content *entity.Content) error

	// GetByID returns nil, nil when the content does not exist
	GetByID(ctx context.Context, id int64) (*entity.Content, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
