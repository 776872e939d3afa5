package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const approvalColumns = `id, entity_id, transition_id, approver_id, approved, comment,
	created_at, decided_at, superseded_at`

// ApprovalRepository implements port.ApprovalRepository
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new approval row
func (r *ApprovalRepository) Create(ctx context.Context, approval *entity.Approval) error {
	query := `
		INSERT INTO workflow_approvals (
			entity_id, transition_id, approver_id, approved, comment, created_at, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var approved sql.NullBool
	if approval.Approved != nil {
		approved = sql.NullBool{Bool: *approval.Approved, Valid: true}
	}
	var decidedAt sql.NullTime
	if approval.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *approval.DecidedAt, Valid: true}
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		approval.EntityID,
		approval.TransitionID,
		approval.ApproverID,
		approved,
		approval.Comment,
		approval.CreatedAt,
		decidedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: approver %d on transition %d", workflow.ErrDuplicateVote, approval.ApproverID, approval.TransitionID)
		}
		r.logger.Error("Failed to create approval",
			zap.Int64("entity_id", approval.EntityID),
			zap.Int64("transition_id", approval.TransitionID),
			zap.Int64("approver_id", approval.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	approval.ID = id
	return nil
}

// GetByID retrieves an approval by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id int64) (*entity.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM workflow_approvals WHERE id = ?`

	approval, err := scanApproval(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval", zap.Int64("approval_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return approval, nil
}

// GetLive retrieves an approver's live row for an (entity, transition) pair
func (r *ApprovalRepository) GetLive(ctx context.Context, entityID, transitionID, approverID int64) (*entity.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM workflow_approvals
		WHERE entity_id = ? AND transition_id = ? AND approver_id = ? AND superseded_at IS NULL
	`

	approval, err := scanApproval(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, entityID, transitionID, approverID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get live approval",
			zap.Int64("entity_id", entityID),
			zap.Int64("transition_id", transitionID),
			zap.Int64("approver_id", approverID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return approval, nil
}

// ListLive retrieves all live rows for an (entity, transition) pair
func (r *ApprovalRepository) ListLive(ctx context.Context, entityID, transitionID int64) ([]*entity.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM workflow_approvals
		WHERE entity_id = ? AND transition_id = ? AND superseded_at IS NULL
		ORDER BY id ASC
	`
	return r.list(ctx, query, entityID, transitionID)
}

// ListPending retrieves live undecided rows, oldest first
func (r *ApprovalRepository) ListPending(ctx context.Context, approverID *int64) ([]*entity.Approval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM workflow_approvals
		WHERE approved IS NULL AND superseded_at IS NULL
	`
	var args []interface{}
	if approverID != nil {
		query += ` AND approver_id = ?`
		args = append(args, *approverID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	return r.list(ctx, query, args...)
}

// Decide records a decision on a live row
func (r *ApprovalRepository) Decide(ctx context.Context, id int64, approved bool, comment string, decidedAt time.Time) error {
	query := `
		UPDATE workflow_approvals
		SET approved = ?, comment = ?, decided_at = ?
		WHERE id = ? AND superseded_at IS NULL
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, approved, comment, decidedAt, id)
	if err != nil {
		r.logger.Error("Failed to decide approval", zap.Int64("approval_id", id), zap.Error(err))
		return fmt.Errorf("failed to decide approval: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: approval %d is no longer live", workflow.ErrAlreadyDecided, id)
	}
	return nil
}

// Supersede retires the live rows of an (entity, transition) pair
func (r *ApprovalRepository) Supersede(ctx context.Context, entityID, transitionID int64, at time.Time) error {
	query := `
		UPDATE workflow_approvals
		SET superseded_at = ?
		WHERE entity_id = ? AND transition_id = ? AND superseded_at IS NULL
	`

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, at, entityID, transitionID); err != nil {
		r.logger.Error("Failed to supersede approvals",
			zap.Int64("entity_id", entityID),
			zap.Int64("transition_id", transitionID),
			zap.Error(err))
		return fmt.Errorf("failed to supersede approvals: %w", err)
	}
	return nil
}

func (r *ApprovalRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Approval, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list approvals", zap.Error(err))
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*entity.Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		approvals = append(approvals, approval)
	}

	return approvals, rows.Err()
}

func scanApproval(row rowScanner) (*entity.Approval, error) {
	var approval entity.Approval
	var approved sql.NullBool
	var decidedAt, supersededAt sql.NullTime

	err := row.Scan(
		&approval.ID,
		&approval.EntityID,
		&approval.TransitionID,
		&approval.ApproverID,
		&approved,
		&approval.Comment,
		&approval.CreatedAt,
		&decidedAt,
		&supersededAt,
	)
	if err != nil {
		return nil, err
	}

	if approved.Valid {
		approval.Approved = &approved.Bool
	}
	if decidedAt.Valid {
		approval.DecidedAt = &decidedAt.Time
	}
	if supersededAt.Valid {
		approval.SupersededAt = &supersededAt.Time
	}

	return &approval, nil
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
