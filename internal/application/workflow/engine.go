package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/content-workflow/internal/application/dispatcher"
	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/domain/event"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
)

// Logger defines logging interface used by the workflow services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// errRaceLost aborts a unit of work that found its transition already completed by another caller
var errRaceLost = errors.New("entity state changed concurrently")

// Engine executes transitions on entities of kind K.
// Every operation runs in one transaction; events are published after commit.
type Engine[K domainwf.Kind] struct {
	entities  port.EntityRepository
	history   port.HistoryRepository
	txManager port.TransactionManager
	catalog   *Catalog
	ledger    *Ledger

	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineOptions)

type engineOptions struct {
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time
}

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(o *engineOptions) {
		o.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.now = now
	}
}

// NewEngine creates a workflow engine for entities of kind K
func NewEngine[K domainwf.Kind](
	entities port.EntityRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	catalog *Catalog,
	ledger *Ledger,
	opts ...EngineOption,
) *Engine[K] {
	o := engineOptions{
		logger: nopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine[K]{
		entities:   entities,
		history:    history,
		txManager:  txManager,
		catalog:    catalog,
		ledger:     ledger,
		dispatcher: o.dispatcher,
		logger:     o.logger,
		now:        o.now,
	}
}

// ExecuteTransition fires a transition on an entity. Approval-gated transitions
// record the caller's vote and only execute once the quorum is reached.
func (e *Engine[K]) ExecuteTransition(ctx context.Context, entityID, transitionID int64, principal entity.Principal, comment string) (*Result, error) {
	machine, err := MachineFor[K](ctx, e.catalog)
	if err != nil {
		return nil, err
	}

	transition, err := machine.Transition(transitionID)
	if err != nil {
		return nil, err
	}

	var (
		result    *Result
		completed *event.Event
		voted     *domainwf.Tally
	)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.loadEntity(txCtx, entityID)
		if err != nil {
			return err
		}

		if err := machine.CheckSource(current.StateID, transition); err != nil {
			done, lookupErr := e.completedBy(txCtx, current, transition)
			if lookupErr != nil {
				return lookupErr
			}
			if done {
				return errRaceLost
			}
			return err
		}
		if err := machine.Authorize(transition, principal); err != nil {
			return err
		}

		if transition.RequiresApproval {
			tally, err := e.ledger.RecordApproval(txCtx, entityID, transition, principal.ID, comment)
			if err != nil {
				return err
			}
			voted = &tally

			if !tally.Reached() {
				e.logger.Info("Approval recorded below quorum",
					"entity_id", entityID,
					"transition", transition.Name,
					"approver_id", principal.ID,
					"remaining", tally.Remaining(),
				)
				result = &Result{
					Status:            StatusPendingApproval,
					Transition:        transition.Name,
					ApprovalsReceived: tally.Approved,
					ApprovalsRequired: tally.Required,
				}
				return nil
			}
		}

		result, completed, err = e.apply(txCtx, current, transition, principal.ID, comment)
		if err != nil {
			return err
		}
		if voted != nil {
			result.ApprovalsReceived = voted.Approved
			result.ApprovalsRequired = voted.Required
		}
		return nil
	})
	if errors.Is(err, errRaceLost) {
		e.logger.Info("Transition already completed by a concurrent caller",
			"entity_id", entityID,
			"transition_id", transitionID,
		)
		return &Result{
			Status:           StatusCompleted,
			FromState:        transition.FromState.Name,
			ToState:          transition.ToState.Name,
			Transition:       transition.Name,
			AlreadyCompleted: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if voted != nil {
		e.publish(ctx, approvalEvent(event.TypeApprovalRecorded, machine.Type(), entityID, transition, principal.ID, true, *voted))
	}
	if completed != nil {
		e.publish(ctx, completed)
	}

	return result, nil
}

// GetAvailableTransitions returns the outgoing transitions of the entity's current
// state the principal may fire, with live tallies on approval-gated ones
func (e *Engine[K]) GetAvailableTransitions(ctx context.Context, entityID int64, principal entity.Principal) ([]*AvailableTransition, error) {
	machine, err := MachineFor[K](ctx, e.catalog)
	if err != nil {
		return nil, err
	}

	current, err := e.loadEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if _, err := machine.State(current.StateID); err != nil {
		return nil, err
	}

	available := machine.Available(current.StateID, principal)
	out := make([]*AvailableTransition, 0, len(available))
	for _, t := range available {
		item := &AvailableTransition{Transition: t}
		if t.RequiresApproval {
			tally, err := e.ledger.Tally(ctx, entityID, t)
			if err != nil {
				return nil, err
			}
			item.Tally = &tally
		}
		out = append(out, item)
	}

	return out, nil
}

// loadEntity fails with ErrNotFound when the entity does not exist
func (e *Engine[K]) loadEntity(ctx context.Context, entityID int64) (*entity.WorkflowEntity, error) {
	current, err := e.entities.GetWorkflowEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s %d", domainwf.ErrNotFound, domainwf.TypeOf[K](), entityID)
	}
	return current, nil
}

// completedBy reports whether an approval-gated transition already carried the entity
// to its destination: the entity sits there and its newest history entry is that transition.
func (e *Engine[K]) completedBy(ctx context.Context, current *entity.WorkflowEntity, transition *entity.Transition) (bool, error) {
	if !transition.RequiresApproval || current.StateID != transition.ToStateID {
		return false, nil
	}

	latest, err := e.history.GetLatest(ctx, domainwf.TypeOf[K](), current.ID)
	if err != nil {
		return false, err
	}
	return latest != nil && latest.TransitionID == transition.ID, nil
}

// apply flips the entity state and writes the audit entry. It must run inside a transaction.
func (e *Engine[K]) apply(ctx context.Context, current *entity.WorkflowEntity, transition *entity.Transition, userID int64, comment string) (*Result, *event.Event, error) {
	now := e.now()
	from, to := transition.FromState, transition.ToState

	var publishedAt *time.Time
	if to.IsFinal && to.Name == entity.StatePublished {
		publishedAt = &now
	}

	moved, err := e.entities.CompareAndSetState(ctx, current.ID, from.ID, to.ID, publishedAt)
	if err != nil {
		return nil, nil, err
	}
	if !moved {
		return nil, nil, errRaceLost
	}

	if err := e.ledger.Supersede(ctx, current.ID, transition.ID); err != nil {
		return nil, nil, err
	}

	record := &entity.History{
		EntityID:       current.ID,
		WorkflowType:   domainwf.TypeOf[K](),
		FromStateID:    from.ID,
		ToStateID:      to.ID,
		FromState:      from.Name,
		ToState:        to.Name,
		UserID:         userID,
		TransitionID:   transition.ID,
		TransitionName: transition.Name,
		Comment:        comment,
		CreatedAt:      now,
	}
	if err := e.history.Create(ctx, record); err != nil {
		return nil, nil, err
	}

	e.logger.Info("Transition executed",
		"entity_id", current.ID,
		"transition", transition.Name,
		"from_state", from.Name,
		"to_state", to.Name,
		"user_id", userID,
	)

	result := &Result{
		Status:     StatusCompleted,
		FromState:  from.Name,
		ToState:    to.Name,
		Transition: transition.Name,
	}
	evt := event.NewTransitionCompleted(domainwf.TypeOf[K](), current.ID, current.AuthorID, userID, transition, from.Name, to.Name)

	return result, evt, nil
}

// publish hands an event to the dispatcher without blocking the caller
func (e *Engine[K]) publish(ctx context.Context, evt *event.Event) {
	if e.dispatcher == nil || evt == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, evt)
}

func approvalEvent(eventType event.Type, workflowType entity.WorkflowType, entityID int64, transition *entity.Transition, approverID int64, approved bool, tally domainwf.Tally) *event.Event {
	return event.NewEvent(eventType, workflowType, entityID, map[string]interface{}{
		event.KeyTransition:   transition.Name,
		event.KeyTransitionID: transition.ID,
		event.KeyApproverID:   approverID,
		event.KeyApproved:     approved,
		event.KeyReceived:     tally.Approved,
		event.KeyRequired:     tally.Required,
	})
}

// GetHistory returns the audit trail of an entity, newest first
func (e *Engine[K]) GetHistory(ctx context.Context, entityID int64) ([]*entity.History, error) {
	if _, err := e.loadEntity(ctx, entityID); err != nil {
		return nil, err
	}
	return e.history.ListByEntity(ctx, domainwf.TypeOf[K](), entityID)
}
