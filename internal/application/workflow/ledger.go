package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
)

// Ledger accumulates approver votes per (entity, transition) pair.
// Its writes are meant to run inside the caller's transaction.
type Ledger struct {
	approvals port.ApprovalRepository
	now       func() time.Time
}

// NewLedger creates a new approval ledger
func NewLedger(approvals port.ApprovalRepository) *Ledger {
	return &Ledger{
		approvals: approvals,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Tally counts the live votes for a pair against the transition's quorum
func (l *Ledger) Tally(ctx context.Context, entityID int64, transition *entity.Transition) (domainwf.Tally, error) {
	rows, err := l.approvals.ListLive(ctx, entityID, transition.ID)
	if err != nil {
		return domainwf.Tally{}, err
	}

	tally := domainwf.Tally{Required: transition.Quorum()}
	for _, a := range rows {
		switch {
		case a.IsPending():
			tally.Pending++
		case a.IsApproved():
			tally.Approved++
		default:
			tally.Rejected++
		}
	}
	return tally, nil
}

// RecordApproval casts a positive vote. A live pending or rejected row of the same
// approver is turned into an approval; a live approval fails with ErrDuplicateVote.
func (l *Ledger) RecordApproval(ctx context.Context, entityID int64, transition *entity.Transition, approverID int64, comment string) (domainwf.Tally, error) {
	now := l.now()

	existing, err := l.approvals.GetLive(ctx, entityID, transition.ID, approverID)
	if err != nil {
		return domainwf.Tally{}, err
	}

	switch {
	case existing == nil:
		approved := true
		err = l.approvals.Create(ctx, &entity.Approval{
			EntityID:     entityID,
			TransitionID: transition.ID,
			ApproverID:   approverID,
			Approved:     &approved,
			Comment:      comment,
			CreatedAt:    now,
			DecidedAt:    &now,
		})
	case existing.IsApproved():
		err = fmt.Errorf("%w: approver %d already approved %s", domainwf.ErrDuplicateVote, approverID, transition.Name)
	default:
		err = l.approvals.Decide(ctx, existing.ID, true, comment, now)
	}
	if err != nil {
		return domainwf.Tally{}, err
	}

	return l.Tally(ctx, entityID, transition)
}

// RequestApprovals opens pending rows for designated approvers.
// Approvers already holding a live row for the pair are skipped.
func (l *Ledger) RequestApprovals(ctx context.Context, entityID int64, transition *entity.Transition, approverIDs []int64) ([]*entity.Approval, error) {
	now := l.now()
	seen := make(map[int64]bool, len(approverIDs))

	var created []*entity.Approval
	for _, approverID := range approverIDs {
		if seen[approverID] {
			continue
		}
		seen[approverID] = true

		existing, err := l.approvals.GetLive(ctx, entityID, transition.ID, approverID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		approval := &entity.Approval{
			EntityID:     entityID,
			TransitionID: transition.ID,
			ApproverID:   approverID,
			CreatedAt:    now,
		}
		if err := l.approvals.Create(ctx, approval); err != nil {
			return nil, err
		}
		created = append(created, approval)
	}

	return created, nil
}

// Supersede retires the live rows of a pair once its transition executed
func (l *Ledger) Supersede(ctx context.Context, entityID, transitionID int64) error {
	return l.approvals.Supersede(ctx, entityID, transitionID, l.now())
}

// GetPendingApprovals returns undecided live rows, optionally for one approver, oldest first
func (l *Ledger) GetPendingApprovals(ctx context.Context, approverID *int64) ([]*entity.Approval, error) {
	return l.approvals.ListPending(ctx, approverID)
}
