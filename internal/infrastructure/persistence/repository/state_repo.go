package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const stateColumns = `id, name, display_name, workflow_type, is_initial, is_final, is_active, sort_order, color, created_at`

// StateRepository implements port.StateRepository
type StateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *sql.DB, logger *zap.Logger) port.StateRepository {
	return &StateRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new workflow state
func (r *StateRepository) Create(ctx context.Context, state *entity.State) error {
	query := `
		INSERT INTO workflow_states (
			name, display_name, workflow_type, is_initial, is_final,
			is_active, sort_order, color, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		state.Name,
		state.DisplayName,
		state.WorkflowType,
		state.IsInitial,
		state.IsFinal,
		state.IsActive,
		state.Order,
		state.Color,
		state.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(err.Error(), "workflow_states.name") {
			return fmt.Errorf("%w: %s/%s", workflow.ErrDuplicateName, state.WorkflowType, state.Name)
		}
		r.logger.Error("Failed to create state",
			zap.String("workflow_type", state.WorkflowType.String()),
			zap.String("name", state.Name),
			zap.Error(err))
		return fmt.Errorf("failed to create state: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	state.ID = id
	return nil
}

// GetByID retrieves a state by ID
func (r *StateRepository) GetByID(ctx context.Context, id int64) (*entity.State, error) {
	query := `SELECT ` + stateColumns + ` FROM workflow_states WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByName retrieves a state by workflow type and name
func (r *StateRepository) GetByName(ctx context.Context, workflowType entity.WorkflowType, name string) (*entity.State, error) {
	query := `SELECT ` + stateColumns + ` FROM workflow_states WHERE workflow_type = ? AND name = ?`
	return r.getOne(ctx, query, workflowType, name)
}

// GetInitial retrieves the initial state of a workflow type
func (r *StateRepository) GetInitial(ctx context.Context, workflowType entity.WorkflowType) (*entity.State, error) {
	query := `SELECT ` + stateColumns + ` FROM workflow_states WHERE workflow_type = ? AND is_initial = 1`
	return r.getOne(ctx, query, workflowType)
}

// ListActive retrieves the active states of a workflow type
func (r *StateRepository) ListActive(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.State, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM workflow_states
		WHERE workflow_type = ? AND is_active = 1
		ORDER BY sort_order ASC, id ASC
	`
	return r.list(ctx, query, workflowType)
}

// ListAll retrieves every state of a workflow type
func (r *StateRepository) ListAll(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.State, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM workflow_states
		WHERE workflow_type = ?
		ORDER BY sort_order ASC, id ASC
	`
	return r.list(ctx, query, workflowType)
}

// ClearInitial removes the initial flag from all states of a workflow type
func (r *StateRepository) ClearInitial(ctx context.Context, workflowType entity.WorkflowType) error {
	query := `UPDATE workflow_states SET is_initial = 0 WHERE workflow_type = ? AND is_initial = 1`

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, workflowType); err != nil {
		r.logger.Error("Failed to clear initial state",
			zap.String("workflow_type", workflowType.String()),
			zap.Error(err))
		return fmt.Errorf("failed to clear initial state: %w", err)
	}
	return nil
}

// SetInitial flags a state as initial
func (r *StateRepository) SetInitial(ctx context.Context, id int64) error {
	query := `UPDATE workflow_states SET is_initial = 1 WHERE id = ?`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to set initial state", zap.Int64("state_id", id), zap.Error(err))
		return fmt.Errorf("failed to set initial state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: state %d", workflow.ErrNotFound, id)
	}
	return nil
}

func (r *StateRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.State, error) {
	state, err := scanState(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get state", zap.Error(err))
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return state, nil
}

func (r *StateRepository) list(ctx context.Context, query string, workflowType entity.WorkflowType) ([]*entity.State, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, workflowType)
	if err != nil {
		r.logger.Error("Failed to list states",
			zap.String("workflow_type", workflowType.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	defer rows.Close()

	var states []*entity.State
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		states = append(states, state)
	}

	return states, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row rowScanner) (*entity.State, error) {
	var state entity.State
	err := row.Scan(
		&state.ID,
		&state.Name,
		&state.DisplayName,
		&state.WorkflowType,
		&state.IsInitial,
		&state.IsFinal,
		&state.IsActive,
		&state.Order,
		&state.Color,
		&state.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Verify interface compliance
var _ port.StateRepository = (*StateRepository)(nil)
