package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const transitionColumns = `t.id, t.name, t.from_state_id, t.to_state_id, t.required_roles,
	t.requires_approval, t.approval_count, t.notify_roles, t.notify_author,
	t.is_active, t.created_at`

// TransitionRepository implements port.TransitionRepository
type TransitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *sql.DB, logger *zap.Logger) port.TransitionRepository {
	return &TransitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new transition
func (r *TransitionRepository) Create(ctx context.Context, transition *entity.Transition) error {
	query := `
		INSERT INTO workflow_transitions (
			name, from_state_id, to_state_id, required_roles, requires_approval,
			approval_count, notify_roles, notify_author, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	requiredRoles, err := encodeRoles(transition.RequiredRoles)
	if err != nil {
		return fmt.Errorf("failed to encode required roles: %w", err)
	}
	notifyRoles, err := encodeRoles(transition.NotifyRoles)
	if err != nil {
		return fmt.Errorf("failed to encode notify roles: %w", err)
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		transition.Name,
		transition.FromStateID,
		transition.ToStateID,
		requiredRoles,
		transition.RequiresApproval,
		transition.ApprovalCount,
		notifyRoles,
		transition.NotifyAuthor,
		transition.IsActive,
		transition.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %d -> %d", workflow.ErrDuplicateEdge, transition.FromStateID, transition.ToStateID)
		}
		r.logger.Error("Failed to create transition",
			zap.String("name", transition.Name),
			zap.Int64("from_state_id", transition.FromStateID),
			zap.Int64("to_state_id", transition.ToStateID),
			zap.Error(err))
		return fmt.Errorf("failed to create transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	transition.ID = id
	return nil
}

// GetByID retrieves a transition by ID
func (r *TransitionRepository) GetByID(ctx context.Context, id int64) (*entity.Transition, error) {
	query := `SELECT ` + transitionColumns + ` FROM workflow_transitions t WHERE t.id = ?`
	return r.getOne(ctx, query, id)
}

// GetByEdge retrieves the transition between two states
func (r *TransitionRepository) GetByEdge(ctx context.Context, fromStateID, toStateID int64) (*entity.Transition, error) {
	query := `SELECT ` + transitionColumns + ` FROM workflow_transitions t WHERE t.from_state_id = ? AND t.to_state_id = ?`
	return r.getOne(ctx, query, fromStateID, toStateID)
}

// List retrieves every transition whose source state belongs to the workflow type
func (r *TransitionRepository) List(ctx context.Context, workflowType entity.WorkflowType) ([]*entity.Transition, error) {
	query := `
		SELECT ` + transitionColumns + `
		FROM workflow_transitions t
		JOIN workflow_states s ON s.id = t.from_state_id
		WHERE s.workflow_type = ?
		ORDER BY t.id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, workflowType)
	if err != nil {
		r.logger.Error("Failed to list transitions",
			zap.String("workflow_type", workflowType.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*entity.Transition
	for rows.Next() {
		transition, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, transition)
	}

	return transitions, rows.Err()
}

func (r *TransitionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.Transition, error) {
	transition, err := scanTransition(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get transition", zap.Error(err))
		return nil, fmt.Errorf("failed to get transition: %w", err)
	}
	return transition, nil
}

func scanTransition(row rowScanner) (*entity.Transition, error) {
	var transition entity.Transition
	var requiredRoles, notifyRoles string

	err := row.Scan(
		&transition.ID,
		&transition.Name,
		&transition.FromStateID,
		&transition.ToStateID,
		&requiredRoles,
		&transition.RequiresApproval,
		&transition.ApprovalCount,
		&notifyRoles,
		&transition.NotifyAuthor,
		&transition.IsActive,
		&transition.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if transition.RequiredRoles, err = decodeRoles(requiredRoles); err != nil {
		return nil, fmt.Errorf("failed to decode required roles: %w", err)
	}
	if transition.NotifyRoles, err = decodeRoles(notifyRoles); err != nil {
		return nil, fmt.Errorf("failed to decode notify roles: %w", err)
	}

	return &transition, nil
}

// Verify interface compliance
var _ port.TransitionRepository = (*TransitionRepository)(nil)
