package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/pkg/utils"
)

// CreateTransitionInput describes a new edge between two states of one workflow type
type CreateTransitionInput struct {
	Name             string              `json:"name" validate:"required,max=64"`
	WorkflowType     entity.WorkflowType `json:"workflow_type" validate:"required,oneof=content comment user custom"`
	FromState        string              `json:"from_state" validate:"required"`
	ToState          string              `json:"to_state" validate:"required"`
	RequiredRoles    []string            `json:"required_roles" validate:"dive,required"`
	RequiresApproval bool                `json:"requires_approval"`
	ApprovalCount    int                 `json:"approval_count" validate:"min=0"`
	NotifyRoles      []string            `json:"notify_roles" validate:"dive,required"`
	NotifyAuthor     bool                `json:"notify_author"`
	IsActive         *bool               `json:"is_active"`
}

// Graph owns the directed transitions between states
type Graph struct {
	states      port.StateRepository
	transitions port.TransitionRepository
	txManager   port.TransactionManager
	catalog     *Catalog
	validator   *utils.Validator
	logger      Logger
}

// NewGraph creates a new transition graph
func NewGraph(
	states port.StateRepository,
	transitions port.TransitionRepository,
	txManager port.TransactionManager,
	catalog *Catalog,
	logger Logger,
) *Graph {
	return &Graph{
		states:      states,
		transitions: transitions,
		txManager:   txManager,
		catalog:     catalog,
		validator:   utils.NewValidator(),
		logger:      logger,
	}
}

// CreateTransition creates a transition. Endpoints are resolved by name within the
// input's workflow type; at most one transition may connect an ordered pair of states.
func (g *Graph) CreateTransition(ctx context.Context, input CreateTransitionInput) (*entity.Transition, error) {
	if err := g.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrInvalidDefinition, err)
	}

	approvalCount := input.ApprovalCount
	if approvalCount == 0 {
		approvalCount = 1
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	transition := &entity.Transition{
		Name:             input.Name,
		RequiredRoles:    input.RequiredRoles,
		RequiresApproval: input.RequiresApproval,
		ApprovalCount:    approvalCount,
		NotifyRoles:      input.NotifyRoles,
		NotifyAuthor:     input.NotifyAuthor,
		IsActive:         isActive,
		CreatedAt:        time.Now().UTC(),
	}

	err := g.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		from, err := g.states.GetByName(txCtx, input.WorkflowType, input.FromState)
		if err != nil {
			return err
		}
		if from == nil {
			return fmt.Errorf("%w: source state %q does not exist in %s", domainwf.ErrInvalidState, input.FromState, input.WorkflowType)
		}

		to, err := g.states.GetByName(txCtx, input.WorkflowType, input.ToState)
		if err != nil {
			return err
		}
		if to == nil {
			return fmt.Errorf("%w: destination state %q does not exist in %s", domainwf.ErrInvalidState, input.ToState, input.WorkflowType)
		}

		existing, err := g.transitions.GetByEdge(txCtx, from.ID, to.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s -> %s is already %s", domainwf.ErrDuplicateEdge, from.Name, to.Name, existing.Name)
		}

		transition.FromStateID = from.ID
		transition.ToStateID = to.ID
		if err := g.transitions.Create(txCtx, transition); err != nil {
			return err
		}

		transition.FromState = from
		transition.ToState = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.catalog.Invalidate(input.WorkflowType)

	g.logger.Info("Transition created",
		"transition_id", transition.ID,
		"name", transition.Name,
		"from_state", input.FromState,
		"to_state", input.ToState,
		"requires_approval", transition.RequiresApproval,
		"approval_count", transition.ApprovalCount,
	)

	return transition, nil
}

// GetTransitions returns the transitions of a workflow type with resolved endpoints,
// optionally restricted to those leaving fromState
func (g *Graph) GetTransitions(ctx context.Context, workflowType entity.WorkflowType, fromState string) ([]*entity.Transition, error) {
	def, err := g.catalog.Definition(ctx, workflowType)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*entity.State, len(def.States))
	var fromID int64
	for _, s := range def.States {
		byID[s.ID] = s
		if s.Name == fromState {
			fromID = s.ID
		}
	}
	if fromState != "" && fromID == 0 {
		return nil, fmt.Errorf("%w: state %q in %s", domainwf.ErrNotFound, fromState, workflowType)
	}

	out := make([]*entity.Transition, 0, len(def.Transitions))
	for _, t := range def.Transitions {
		if fromState != "" && t.FromStateID != fromID {
			continue
		}
		resolved := *t
		resolved.FromState = byID[t.FromStateID]
		resolved.ToState = byID[t.ToStateID]
		out = append(out, &resolved)
	}

	return out, nil
}

// GetTransition returns a transition by id
func (g *Graph) GetTransition(ctx context.Context, id int64) (*entity.Transition, error) {
	transition, err := g.transitions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transition == nil {
		return nil, fmt.Errorf("%w: transition %d", domainwf.ErrNotFound, id)
	}
	return transition, nil
}
