package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/pkg/utils"
)

const maxTitleLength = 255

// InitialStateProvider resolves the entry state of a workflow type
type InitialStateProvider interface {
	GetInitialState(ctx context.Context, workflowType entity.WorkflowType) (*entity.State, error)
}

// ContentService manages the content rows governed by the content workflow
type ContentService interface {
	CreateContent(ctx context.Context, title string, authorID int64) (*entity.Content, error)
	GetContent(ctx context.Context, id int64) (*entity.Content, error)
}

type contentServiceImpl struct {
	contentRepo port.ContentRepository
	states      InitialStateProvider
	logger      Logger
	now         func() time.Time
}

// NewContentService creates a new ContentService
func NewContentService(contentRepo port.ContentRepository, states InitialStateProvider, logger Logger) ContentService {
	return &contentServiceImpl{
		contentRepo: contentRepo,
		states:      states,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateContent inserts a content row in the initial content state
func (s *contentServiceImpl) CreateContent(ctx context.Context, title string, authorID int64) (*entity.Content, error) {
	title = utils.SanitizeString(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domainwf.ErrInvalidDefinition)
	}
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", domainwf.ErrInvalidDefinition, maxTitleLength)
	}
	if authorID <= 0 {
		return nil, fmt.Errorf("%w: author id must be positive", domainwf.ErrInvalidDefinition)
	}

	initial, err := s.states.GetInitialState(ctx, entity.WorkflowTypeContent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve initial content state: %w", err)
	}

	now := s.now()
	content := &entity.Content{
		Title:     title,
		AuthorID:  authorID,
		StateID:   initial.ID,
		Status:    initial.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.contentRepo.Create(ctx, content); err != nil {
		s.logger.Error("Failed to create content", "author_id", authorID, "error", err)
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	s.logger.Info("Content created", "content_id", content.ID, "state", initial.Name)
	return content, nil
}

// GetContent returns a content row by id
func (s *contentServiceImpl) GetContent(ctx context.Context, id int64) (*entity.Content, error) {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	if content == nil {
		return nil, fmt.Errorf("%w: content %d", domainwf.ErrNotFound, id)
	}
	return content, nil
}
