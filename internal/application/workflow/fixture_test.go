package workflow

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/content-workflow/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixture wires the workflow services to a migrated SQLite database holding
// draft(initial) -> review -> published(final) with Submit, Publish(admin, quorum 2) and Reject
type fixture struct {
	db          *sql.DB
	states      port.StateRepository
	transitions port.TransitionRepository
	approvals   port.ApprovalRepository
	contents    port.ContentRepository
	history     port.HistoryRepository
	tx          port.TransactionManager

	catalog  *Catalog
	registry *Registry
	graph    *Graph
	ledger   *Ledger
	engine   *Engine[domainwf.ContentFlow]

	draft, review, published *entity.State
	submit, publish, reject  *entity.Transition
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()

	conn, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "workflow.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = database.NewMigrator(conn, zap.NewNop()).Migrate()
	require.NoError(t, err)

	logger := zap.NewNop()
	f := &fixture{
		db:          conn.DB,
		states:      repository.NewStateRepository(conn.DB, logger),
		transitions: repository.NewTransitionRepository(conn.DB, logger),
		approvals:   repository.NewApprovalRepository(conn.DB, logger),
		contents:    repository.NewContentRepository(conn.DB, logger),
		history:     repository.NewHistoryRepository(conn.DB, logger),
		tx:          sqlite.NewDB(conn.DB, logger),
	}

	f.catalog = NewCatalog(f.states, f.transitions)
	f.registry = NewRegistry(f.states, f.tx, f.catalog, nopLogger{})
	f.graph = NewGraph(f.states, f.transitions, f.tx, f.catalog, nopLogger{})
	f.ledger = NewLedger(f.approvals)
	f.engine = NewEngine[domainwf.ContentFlow](f.contents, f.history, f.tx, f.catalog, f.ledger, opts...)

	ctx := context.Background()
	f.draft = f.mustState(t, CreateStateInput{Name: "draft", WorkflowType: entity.WorkflowTypeContent, IsInitial: true, Order: 1})
	f.review = f.mustState(t, CreateStateInput{Name: "review", WorkflowType: entity.WorkflowTypeContent, Order: 2})
	f.published = f.mustState(t, CreateStateInput{Name: "published", WorkflowType: entity.WorkflowTypeContent, IsFinal: true, Order: 3})

	f.submit, err = f.graph.CreateTransition(ctx, CreateTransitionInput{
		Name: "Submit", WorkflowType: entity.WorkflowTypeContent, FromState: "draft", ToState: "review",
	})
	require.NoError(t, err)

	f.publish, err = f.graph.CreateTransition(ctx, CreateTransitionInput{
		Name: "Publish", WorkflowType: entity.WorkflowTypeContent, FromState: "review", ToState: "published",
		RequiredRoles: []string{"admin"}, RequiresApproval: true, ApprovalCount: 2,
		NotifyRoles: []string{"editor"}, NotifyAuthor: true,
	})
	require.NoError(t, err)

	f.reject, err = f.graph.CreateTransition(ctx, CreateTransitionInput{
		Name: "Reject", WorkflowType: entity.WorkflowTypeContent, FromState: "review", ToState: "draft",
		RequiredRoles: []string{"editor"},
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) mustState(t *testing.T, input CreateStateInput) *entity.State {
	t.Helper()
	state, err := f.registry.CreateState(context.Background(), input)
	require.NoError(t, err)
	return state
}

// newContent inserts a content row sitting in the given state
func (f *fixture) newContent(t *testing.T, state *entity.State) int64 {
	t.Helper()

	now := time.Now().UTC()
	content := &entity.Content{Title: "Post", AuthorID: 100, StateID: state.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.contents.Create(context.Background(), content))
	return content.ID
}

func (f *fixture) status(t *testing.T, contentID int64) *entity.Content {
	t.Helper()

	content, err := f.contents.GetByID(context.Background(), contentID)
	require.NoError(t, err)
	require.NotNil(t, content)
	return content
}

func (f *fixture) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()

	var n int
	require.NoError(t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}

func admin(id int64) entity.Principal  { return entity.Principal{ID: id, Role: "admin"} }
func author(id int64) entity.Principal { return entity.Principal{ID: id, Role: "author"} }
