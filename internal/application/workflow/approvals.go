package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/domain/event"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
)

// ApproveOrReject resolves a pending inbox row on behalf of its designated approver,
// who must also hold a role allowed to fire the transition. An approval that completes
// the quorum executes the transition in the same transaction.
func (e *Engine[K]) ApproveOrReject(ctx context.Context, approvalID int64, principal entity.Principal, approved bool, comment string) (*Result, error) {
	machine, err := MachineFor[K](ctx, e.catalog)
	if err != nil {
		return nil, err
	}

	var (
		result    *Result
		completed *event.Event
		recorded  *event.Event
	)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		approval, err := e.ledger.approvals.GetByID(txCtx, approvalID)
		if err != nil {
			return err
		}
		if approval == nil {
			return fmt.Errorf("%w: approval %d", domainwf.ErrNotFound, approvalID)
		}
		if !approval.IsLive() || !approval.IsPending() {
			return fmt.Errorf("%w: approval %d", domainwf.ErrAlreadyDecided, approvalID)
		}
		if approval.ApproverID != principal.ID {
			return fmt.Errorf("%w: approval %d belongs to user %d", domainwf.ErrNotDesignatedApprover, approvalID, approval.ApproverID)
		}

		transition, err := machine.Transition(approval.TransitionID)
		if err != nil {
			return err
		}
		if err := machine.Authorize(transition, principal); err != nil {
			return err
		}

		if err := e.ledger.approvals.Decide(txCtx, approval.ID, approved, comment, e.now()); err != nil {
			return err
		}

		tally, err := e.ledger.Tally(txCtx, approval.EntityID, transition)
		if err != nil {
			return err
		}
		recorded = approvalEvent(event.TypeApprovalDecided, machine.Type(), approval.EntityID, transition, principal.ID, approved, tally)

		if !approved {
			result = &Result{
				Status:            StatusRejected,
				Transition:        transition.Name,
				ApprovalsReceived: tally.Approved,
				ApprovalsRequired: tally.Required,
			}
			return nil
		}

		current, err := e.loadEntity(txCtx, approval.EntityID)
		if err != nil {
			return err
		}

		// The entity moved on before this vote arrived; the vote is still kept
		if current.StateID != transition.FromStateID {
			result = &Result{Status: StatusApproved, Transition: transition.Name, AlreadyCompleted: true}
			return nil
		}

		if !tally.Reached() {
			result = &Result{
				Status:            StatusApproved,
				Transition:        transition.Name,
				ApprovalsReceived: tally.Approved,
				ApprovalsRequired: tally.Required,
			}
			return nil
		}

		result, completed, err = e.apply(txCtx, current, transition, principal.ID, comment)
		if err != nil {
			return err
		}
		result.ApprovalsReceived = tally.Approved
		result.ApprovalsRequired = tally.Required
		return nil
	})
	if err != nil {
		// A concurrent executor won; the rolled back decision is reported as already done
		if errors.Is(err, errRaceLost) {
			return &Result{Status: StatusApproved, AlreadyCompleted: true}, nil
		}
		return nil, err
	}

	e.logger.Info("Approval decided",
		"approval_id", approvalID,
		"approver_id", principal.ID,
		"approved", approved,
		"status", result.Status,
	)

	e.publish(ctx, recorded)
	e.publish(ctx, completed)

	return result, nil
}

// RequestApprovals opens pending inbox rows for designated approvers of an
// approval-gated transition. The requester must be allowed to fire the transition
// and the entity must currently sit in its source state.
func (e *Engine[K]) RequestApprovals(ctx context.Context, entityID, transitionID int64, requester entity.Principal, approverIDs []int64) ([]*entity.Approval, error) {
	machine, err := MachineFor[K](ctx, e.catalog)
	if err != nil {
		return nil, err
	}

	transition, err := machine.Transition(transitionID)
	if err != nil {
		return nil, err
	}
	if !transition.RequiresApproval {
		return nil, fmt.Errorf("%w: %s does not require approval", domainwf.ErrInvalidDefinition, transition.Name)
	}
	if err := machine.Authorize(transition, requester); err != nil {
		return nil, err
	}
	if len(approverIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one approver is required", domainwf.ErrInvalidDefinition)
	}

	var created []*entity.Approval
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.loadEntity(txCtx, entityID)
		if err != nil {
			return err
		}
		if err := machine.CheckSource(current.StateID, transition); err != nil {
			return err
		}

		created, err = e.ledger.RequestApprovals(txCtx, entityID, transition, approverIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, a := range created {
		e.publish(ctx, event.NewEvent(event.TypeApprovalRequested, machine.Type(), entityID, map[string]interface{}{
			event.KeyTransition:   transition.Name,
			event.KeyTransitionID: transition.ID,
			event.KeyApproverID:   a.ApproverID,
		}))
	}

	return created, nil
}

// GetPendingApprovals returns the undecided live approval rows, optionally for one approver
func (e *Engine[K]) GetPendingApprovals(ctx context.Context, approverID *int64) ([]*entity.Approval, error) {
	return e.ledger.GetPendingApprovals(ctx, approverID)
}
