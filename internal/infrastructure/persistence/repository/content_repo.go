package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ContentRepository implements port.ContentRepository
type ContentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *sql.DB, logger *zap.Logger) port.ContentRepository {
	return &ContentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new content item
func (r *ContentRepository) Create(ctx context.Context, content *entity.Content) error {
	query := `
		INSERT INTO contents (title, author_id, state_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		content.Title,
		content.AuthorID,
		content.StateID,
		content.CreatedAt,
		content.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create content",
			zap.Int64("author_id", content.AuthorID),
			zap.Error(err))
		return fmt.Errorf("failed to create content: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	content.ID = id
	return nil
}

// GetByID retrieves a content item with its status projected from the state name
func (r *ContentRepository) GetByID(ctx context.Context, id int64) (*entity.Content, error) {
	query := `
		SELECT c.id, c.title, c.author_id, c.state_id, s.name,
			c.published_at, c.created_at, c.updated_at
		FROM contents c
		JOIN workflow_states s ON s.id = c.state_id
		WHERE c.id = ?
	`

	var content entity.Content
	var publishedAt sql.NullTime

	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&content.ID,
		&content.Title,
		&content.AuthorID,
		&content.StateID,
		&content.Status,
		&publishedAt,
		&content.CreatedAt,
		&content.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get content", zap.Int64("content_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	if publishedAt.Valid {
		content.PublishedAt = &publishedAt.Time
	}

	return &content, nil
}

// GetWorkflowEntity retrieves the workflow view of a content item
func (r *ContentRepository) GetWorkflowEntity(ctx context.Context, id int64) (*entity.WorkflowEntity, error) {
	query := `SELECT id, state_id, author_id FROM contents WHERE id = ?`

	var e entity.WorkflowEntity
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&e.ID, &e.StateID, &e.AuthorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get content state", zap.Int64("content_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get content state: %w", err)
	}
	return &e, nil
}

// CompareAndSetState moves a content item between states if it has not moved meanwhile
func (r *ContentRepository) CompareAndSetState(ctx context.Context, id, fromStateID, toStateID int64, publishedAt *time.Time) (bool, error) {
	query := `
		UPDATE contents
		SET state_id = ?, published_at = COALESCE(?, published_at), updated_at = ?
		WHERE id = ? AND state_id = ?
	`

	var published sql.NullTime
	if publishedAt != nil {
		published = sql.NullTime{Time: *publishedAt, Valid: true}
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		toStateID,
		published,
		time.Now().UTC(),
		id,
		fromStateID,
	)
	if err != nil {
		r.logger.Error("Failed to update content state",
			zap.Int64("content_id", id),
			zap.Int64("from_state_id", fromStateID),
			zap.Int64("to_state_id", toStateID),
			zap.Error(err))
		return false, fmt.Errorf("failed to update content state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// Verify interface compliance
var _ port.ContentRepository = (*ContentRepository)(nil)
