package definition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/garyjia/content-workflow/internal/application/workflow"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/content-workflow/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testLogger struct{}

func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}

func setupSeeder(t *testing.T) (*Seeder, *workflow.Registry, *workflow.Graph) {
	t.Helper()

	conn, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "seed.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = database.NewMigrator(conn, zap.NewNop()).Migrate()
	require.NoError(t, err)

	logger := zap.NewNop()
	states := repository.NewStateRepository(conn.DB, logger)
	transitions := repository.NewTransitionRepository(conn.DB, logger)
	tx := sqlite.NewDB(conn.DB, logger)
	catalog := workflow.NewCatalog(states, transitions)

	registry := workflow.NewRegistry(states, tx, catalog, testLogger{})
	graph := workflow.NewGraph(states, transitions, tx, catalog, testLogger{})

	return NewSeeder(registry, graph, logger), registry, graph
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid document",
			yaml: `
workflows:
  - type: comment
    states:
      - {name: pending, initial: true}
      - {name: visible, final: true}
    transitions:
      - {name: Approve, from: pending, to: visible, roles: [moderator], requires_approval: true, approval_count: 2}
`,
		},
		{name: "empty payload", yaml: "  \n", wantErr: "empty"},
		{name: "unknown type", yaml: "workflows:\n  - type: invoice\n", wantErr: "unknown workflow type"},
		{name: "unknown field", yaml: "workflows:\n  - type: content\n    colour: red\n", wantErr: "failed to decode"},
		{name: "repeated type", yaml: "workflows:\n  - type: user\n  - type: user\n", wantErr: "more than once"},
		{
			name:    "two initial states",
			yaml:    "workflows:\n  - type: custom\n    states:\n      - {name: a, initial: true}\n      - {name: b, initial: true}\n",
			wantErr: "2 initial states",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, doc.Workflows, 1)
			wf := doc.Workflows[0]
			assert.Equal(t, entity.WorkflowTypeComment, wf.Type)
			assert.True(t, wf.States[0].Initial)
			assert.Equal(t, 2, wf.Transitions[0].ApprovalCount)
			assert.Equal(t, []string{"moderator"}, wf.Transitions[0].Roles)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflows:\n  - type: user\n    states:\n      - {name: active, initial: true}\n"), 0644))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "active", doc.Workflows[0].States[0].Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	doc := Default()
	require.Len(t, doc.Workflows, 1)
	assert.Equal(t, entity.WorkflowTypeContent, doc.Workflows[0].Type)
	assert.Len(t, doc.Workflows[0].States, 4)
	assert.Len(t, doc.Workflows[0].Transitions, 4)
}

func TestSeeder_ApplyIsIdempotent(t *testing.T) {
	seeder, registry, graph := setupSeeder(t)
	ctx := context.Background()

	first, err := seeder.Apply(ctx, Default())
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{StatesCreated: 4, TransitionsCreated: 4}, first)

	second, err := seeder.Apply(ctx, Default())
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{StatesSkipped: 4, TransitionsSkipped: 4}, second)

	initial, err := registry.GetInitialState(ctx, entity.WorkflowTypeContent)
	require.NoError(t, err)
	assert.Equal(t, "draft", initial.Name)

	fromReview, err := graph.GetTransitions(ctx, entity.WorkflowTypeContent, "review")
	require.NoError(t, err)
	require.Len(t, fromReview, 2)
	assert.Equal(t, "Publish", fromReview[0].Name)
	assert.True(t, fromReview[0].NotifyAuthor)
}

func TestSeeder_ApplyStopsOnInvalidEntry(t *testing.T) {
	seeder, _, _ := setupSeeder(t)

	doc, err := Parse([]byte(`
workflows:
  - type: content
    states:
      - {name: draft, initial: true}
    transitions:
      - {name: Nowhere, from: draft, to: missing}
`))
	require.NoError(t, err)

	res, err := seeder.Apply(context.Background(), doc)
	assert.Error(t, err)
	assert.Equal(t, 1, res.StatesCreated)
	assert.Equal(t, 0, res.TransitionsCreated)
}
