package definition

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/content-workflow/internal/application/workflow"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
	"go.uber.org/zap"
)

// StateCreator creates workflow states
type StateCreator interface {
	CreateState(ctx context.Context, input workflow.CreateStateInput) (*entity.State, error)
}

// TransitionCreator creates workflow transitions
type TransitionCreator interface {
	CreateTransition(ctx context.Context, input workflow.CreateTransitionInput) (*entity.Transition, error)
}

// ApplyResult counts what a seeding run created and skipped
type ApplyResult struct {
	StatesCreated      int
	StatesSkipped      int
	TransitionsCreated int
	TransitionsSkipped int
}

// Seeder writes definition documents through the registry and graph.
// Entries that already exist are skipped, so applying a document twice is a no-op.
type Seeder struct {
	states      StateCreator
	transitions TransitionCreator
	logger      *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(states StateCreator, transitions TransitionCreator, logger *zap.Logger) *Seeder {
	return &Seeder{
		states:      states,
		transitions: transitions,
		logger:      logger,
	}
}

// Apply creates every state, then every transition, of each workflow in the document
func (s *Seeder) Apply(ctx context.Context, doc *Document) (ApplyResult, error) {
	var res ApplyResult

	for _, wf := range doc.Workflows {
		for _, st := range wf.States {
			_, err := s.states.CreateState(ctx, workflow.CreateStateInput{
				Name:         st.Name,
				DisplayName:  st.DisplayName,
				WorkflowType: wf.Type,
				IsInitial:    st.Initial,
				IsFinal:      st.Final,
				IsActive:     st.Active,
				Order:        st.Order,
				Color:        st.Color,
			})
			switch {
			case errors.Is(err, domainwf.ErrDuplicateName):
				res.StatesSkipped++
			case err != nil:
				return res, fmt.Errorf("failed to seed state %s/%s: %w", wf.Type, st.Name, err)
			default:
				res.StatesCreated++
			}
		}

		for _, tr := range wf.Transitions {
			_, err := s.transitions.CreateTransition(ctx, workflow.CreateTransitionInput{
				Name:             tr.Name,
				WorkflowType:     wf.Type,
				FromState:        tr.From,
				ToState:          tr.To,
				RequiredRoles:    tr.Roles,
				RequiresApproval: tr.RequiresApproval,
				ApprovalCount:    tr.ApprovalCount,
				NotifyRoles:      tr.NotifyRoles,
				NotifyAuthor:     tr.NotifyAuthor,
				IsActive:         tr.Active,
			})
			switch {
			case errors.Is(err, domainwf.ErrDuplicateEdge):
				res.TransitionsSkipped++
			case err != nil:
				return res, fmt.Errorf("failed to seed transition %s/%s: %w", wf.Type, tr.Name, err)
			default:
				res.TransitionsCreated++
			}
		}

		s.logger.Info("Workflow definition applied",
			zap.String("workflow_type", wf.Type.String()),
			zap.Int("states", len(wf.States)),
			zap.Int("transitions", len(wf.Transitions)))
	}

	return res, nil
}
