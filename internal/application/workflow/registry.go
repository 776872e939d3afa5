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

// CreateStateInput describes a new workflow state
type CreateStateInput struct {
	Name         string              `json:"name" validate:"required,name,max=64"`
	DisplayName  string              `json:"display_name" validate:"max=128"`
	WorkflowType entity.WorkflowType `json:"workflow_type" validate:"required,oneof=content comment user custom"`
	IsInitial    bool                `json:"is_initial"`
	IsFinal      bool                `json:"is_final"`
	IsActive     *bool               `json:"is_active"`
	Order        int                 `json:"order"`
	Color        string              `json:"color" validate:"omitempty,hexcolor"`
}

// Registry owns the named states of every workflow type
type Registry struct {
	states    port.StateRepository
	txManager port.TransactionManager
	catalog   *Catalog
	validator *utils.Validator
	logger    Logger
}

// NewRegistry creates a new state registry
func NewRegistry(states port.StateRepository, txManager port.TransactionManager, catalog *Catalog, logger Logger) *Registry {
	return &Registry{
		states:    states,
		txManager: txManager,
		catalog:   catalog,
		validator: utils.NewValidator(),
		logger:    logger,
	}
}

// CreateState creates a state. An initial state takes the flag from every other
// state of its workflow type in the same transaction.
func (r *Registry) CreateState(ctx context.Context, input CreateStateInput) (*entity.State, error) {
	if err := r.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrInvalidDefinition, err)
	}

	displayName := input.DisplayName
	if displayName == "" {
		displayName = input.Name
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	state := &entity.State{
		Name:         input.Name,
		DisplayName:  displayName,
		WorkflowType: input.WorkflowType,
		IsInitial:    input.IsInitial,
		IsFinal:      input.IsFinal,
		IsActive:     isActive,
		Order:        input.Order,
		Color:        input.Color,
		CreatedAt:    time.Now().UTC(),
	}

	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if state.IsInitial {
			if err := r.states.ClearInitial(txCtx, state.WorkflowType); err != nil {
				return err
			}
		}
		return r.states.Create(txCtx, state)
	})
	if err != nil {
		return nil, err
	}

	r.catalog.Invalidate(state.WorkflowType)

	r.logger.Info("State created",
		"state_id", state.ID,
		"name", state.Name,
		"workflow_type", state.WorkflowType,
		"is_initial", state.IsInitial,
	)

	return state, nil
}

// SetInitialState moves the initial flag of a workflow type to the named state
func (r *Registry) SetInitialState(ctx context.Context, workflowType entity.WorkflowType, name string) (*entity.State, error) {
	var state *entity.State

	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		found, err := r.states.GetByName(txCtx, workflowType, name)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("%w: state %q in %s", domainwf.ErrNotFound, name, workflowType)
		}

		if err := r.states.ClearInitial(txCtx, workflowType); err != nil {
			return err
		}
		if err := r.states.SetInitial(txCtx, found.ID); err != nil {
			return err
		}

		found.IsInitial = true
		state = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.catalog.Invalidate(workflowType)

	r.logger.Info("Initial state changed",
		"state_id", state.ID,
		"name", state.Name,
		"workflow_type", workflowType,
	)

	return state, nil
}

// GetStates returns the active states of a workflow type ordered by their display order
func (r *Registry) GetStates(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.State, error) {
	return r.states.ListActive(ctx, workflowType)
}

// GetInitialState returns the initial state of a workflow type
func (r *Registry) GetInitialState(ctx context.Context, workflowType entity.WorkflowType) (*entity.State, error) {
	state, err := r.states.GetInitial(ctx, workflowType)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: no initial state for %s", domainwf.ErrNotFound, workflowType)
	}
	return state, nil
}

// GetStateByName returns a state by name within a workflow type
func (r *Registry) GetStateByName(ctx context.Context, name string, workflowType entity.WorkflowType) (*entity.State, error) {
	state, err := r.states.GetByName(ctx, workflowType, name)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: state %q in %s", domainwf.ErrNotFound, name, workflowType)
	}
	return state, nil
}
