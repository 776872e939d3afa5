package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countInitial(t *testing.T, f *fixture, workflowType entity.WorkflowType) int {
	return f.count(t, `SELECT COUNT(*) FROM workflow_states WHERE workflow_type = ? AND is_initial = 1`, workflowType)
}

func TestRegistry_SingleInitialState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intake := f.mustState(t, CreateStateInput{Name: "intake", WorkflowType: entity.WorkflowTypeContent, IsInitial: true})
	assert.Equal(t, 1, countInitial(t, f, entity.WorkflowTypeContent))

	initial, err := f.registry.GetInitialState(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, intake.ID, initial.ID)

	moved, err := f.registry.SetInitialState(ctx, entity.WorkflowTypeContent, "draft")
	require.NoError(t, err)
	assert.True(t, moved.IsInitial)
	assert.Equal(t, 1, countInitial(t, f, entity.WorkflowTypeContent))

	_, err = f.registry.SetInitialState(ctx, entity.WorkflowTypeContent, "missing")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	// Another workflow type keeps its own initial state
	f.mustState(t, CreateStateInput{Name: "visible", WorkflowType: entity.WorkflowTypeComment, IsInitial: true})
	assert.Equal(t, 1, countInitial(t, f, entity.WorkflowTypeContent))
	assert.Equal(t, 1, countInitial(t, f, entity.WorkflowTypeComment))
}

func TestRegistry_FailedCreateKeepsInitialState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.CreateState(ctx, CreateStateInput{Name: "review", WorkflowType: entity.WorkflowTypeContent, IsInitial: true})
	assert.ErrorIs(t, err, domainwf.ErrDuplicateName)

	initial, err := f.registry.GetInitialState(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, "draft", initial.Name, "clearing the old initial flag must roll back with the failed insert")
}

func TestRegistry_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input CreateStateInput
	}{
		{"missing name", CreateStateInput{WorkflowType: entity.WorkflowTypeContent}},
		{"surrounding whitespace", CreateStateInput{Name: " review", WorkflowType: entity.WorkflowTypeContent}},
		{"control character", CreateStateInput{Name: "in\nreview", WorkflowType: entity.WorkflowTypeContent}},
		{"unknown workflow type", CreateStateInput{Name: "draft", WorkflowType: "invoice"}},
		{"bad color", CreateStateInput{Name: "pending", WorkflowType: entity.WorkflowTypeContent, Color: "red"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.registry.CreateState(context.Background(), tt.input)
			assert.ErrorIs(t, err, domainwf.ErrInvalidDefinition)

			var verr *utils.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}

	state, err := f.registry.CreateState(context.Background(), CreateStateInput{Name: "In Legal Review", WorkflowType: entity.WorkflowTypeContent})
	require.NoError(t, err)
	assert.Equal(t, "In Legal Review", state.Name)
}

func TestRegistry_Queries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := false
	f.mustState(t, CreateStateInput{Name: "retired", WorkflowType: entity.WorkflowTypeContent, IsActive: &inactive, Order: 0})

	states, err := f.registry.GetStates(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"draft", "review", "published"}, names)

	state, err := f.registry.GetStateByName(ctx, "review", entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, f.review.ID, state.ID)
	assert.Equal(t, "review", state.DisplayName)

	_, err = f.registry.GetStateByName(ctx, "review", entity.WorkflowTypeUser)
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	_, err = f.registry.GetInitialState(ctx, entity.WorkflowTypeUser)
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

func TestGraph_CreateTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateTransitionInput
		wantErr error
	}{
		{
			name:    "missing source",
			input:   CreateTransitionInput{Name: "Go", WorkflowType: entity.WorkflowTypeContent, FromState: "nowhere", ToState: "review"},
			wantErr: domainwf.ErrInvalidState,
		},
		{
			name:    "state of another type",
			input:   CreateTransitionInput{Name: "Go", WorkflowType: entity.WorkflowTypeComment, FromState: "draft", ToState: "review"},
			wantErr: domainwf.ErrInvalidState,
		},
		{
			name:    "same edge under a new name",
			input:   CreateTransitionInput{Name: "Quick Submit", WorkflowType: entity.WorkflowTypeContent, FromState: "draft", ToState: "review"},
			wantErr: domainwf.ErrDuplicateEdge,
		},
		{
			name:    "negative quorum",
			input:   CreateTransitionInput{Name: "Go", WorkflowType: entity.WorkflowTypeContent, FromState: "draft", ToState: "published", ApprovalCount: -1},
			wantErr: domainwf.ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.graph.CreateTransition(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	direct, err := f.graph.CreateTransition(ctx, CreateTransitionInput{
		Name: "Fast Track", WorkflowType: entity.WorkflowTypeContent, FromState: "draft", ToState: "published",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, direct.ApprovalCount)
	assert.True(t, direct.IsActive)
	assert.Equal(t, "published", direct.ToState.Name)
}

func TestGraph_GetTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.graph.GetTransitions(ctx, entity.WorkflowTypeContent, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fromReview, err := f.graph.GetTransitions(ctx, entity.WorkflowTypeContent, "review")
	require.NoError(t, err)
	require.Len(t, fromReview, 2)
	assert.Equal(t, "Publish", fromReview[0].Name)
	assert.Equal(t, []string{"admin"}, fromReview[0].RequiredRoles)
	assert.Equal(t, 2, fromReview[0].ApprovalCount)
	assert.Equal(t, "published", fromReview[0].ToState.Name)

	_, err = f.graph.GetTransitions(ctx, entity.WorkflowTypeContent, "unknown")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	got, err := f.graph.GetTransition(ctx, f.submit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Submit", got.Name)

	_, err = f.graph.GetTransition(ctx, 999)
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

// countingStates counts definition loads
type countingStates struct {
	port.StateRepository
	loads int
}

func (c *countingStates) ListAll(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.State, error) {
	c.loads++
	return c.StateRepository.ListAll(ctx, workflowType)
}

func TestCatalog_CachesUntilInvalidatedOrExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	states := &countingStates{StateRepository: f.states}
	catalog := NewCatalog(states, f.transitions, WithCacheExpiry(time.Minute))
	now := time.Now()
	catalog.now = func() time.Time { return now }

	def, err := catalog.Definition(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Len(t, def.States, 3)
	assert.Len(t, def.Transitions, 3)

	_, err = catalog.Definition(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, 1, states.loads)

	catalog.Invalidate(entity.WorkflowTypeContent)
	_, err = catalog.Definition(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, 2, states.loads)

	now = now.Add(2 * time.Minute)
	_, err = catalog.Definition(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, 3, states.loads)

	machine, err := MachineFor[domainwf.ContentFlow](ctx, catalog)
	require.NoError(t, err)
	initial, err := machine.Initial()
	require.NoError(t, err)
	assert.Equal(t, "draft", initial.Name)
}
