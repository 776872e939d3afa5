package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.History) error {
	query := `
		INSERT INTO workflow_history (
			entity_id, workflow_type, from_state_id, to_state_id, user_id,
			transition_id, transition_name, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		history.EntityID,
		history.WorkflowType,
		history.FromStateID,
		history.ToStateID,
		history.UserID,
		history.TransitionID,
		history.TransitionName,
		history.Comment,
		history.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("entity_id", history.EntityID),
			zap.Int64("transition_id", history.TransitionID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

const historySelect = `
	SELECT h.id, h.entity_id, h.workflow_type, h.from_state_id, h.to_state_id,
		fs.name, ts.name, h.user_id, h.transition_id, h.transition_name,
		h.comment, h.created_at
	FROM workflow_history h
	JOIN workflow_states fs ON fs.id = h.from_state_id
	JOIN workflow_states ts ON ts.id = h.to_state_id
	WHERE h.workflow_type = ? AND h.entity_id = ?
	ORDER BY h.created_at DESC, h.id DESC
`

// ListByEntity retrieves all history records for an entity, newest first
func (r *HistoryRepository) ListByEntity(ctx context.Context, workflowType entity.WorkflowType, entityID int64) ([]*entity.History, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, historySelect, workflowType, entityID)
	if err != nil {
		r.logger.Error("Failed to get history by entity ID", zap.Int64("entity_id", entityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.History
	for rows.Next() {
		record, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetLatest retrieves the newest history record of an entity, or nil if it has none
func (r *HistoryRepository) GetLatest(ctx context.Context, workflowType entity.WorkflowType, entityID int64) (*entity.History, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, historySelect+" LIMIT 1", workflowType, entityID)

	record, err := scanHistory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get latest history", zap.Int64("entity_id", entityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get latest history: %w", err)
	}
	return record, nil
}

func scanHistory(row rowScanner) (*entity.History, error) {
	var record entity.History
	err := row.Scan(
		&record.ID,
		&record.EntityID,
		&record.WorkflowType,
		&record.FromStateID,
		&record.ToStateID,
		&record.FromState,
		&record.ToState,
		&record.UserID,
		&record.TransitionID,
		&record.TransitionName,
		&record.Comment,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
