package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/xuri/excelize/v2"
)

const (
	historySheet   = "History"
	exportDir      = "history"
	timeCellFormat = "2006-01-02 15:04:05"
)

var historyHeader = []string{"ID", "Time", "Transition", "From", "To", "User ID", "Comment"}

// HistorySource lists the audit entries of an entity, newest first
type HistorySource interface {
	GetHistory(ctx context.Context, entityID int64) ([]*entity.History, error)
}

// HistoryExportService renders an entity's audit history into a workbook
type HistoryExportService interface {
	ExportHistory(ctx context.Context, entityID int64) (string, error)
}

type historyExportServiceImpl struct {
	history HistorySource
	storage port.FileStorage
	logger  Logger
	now     func() time.Time
}

// NewHistoryExportService creates a new HistoryExportService
func NewHistoryExportService(history HistorySource, storage port.FileStorage, logger Logger) HistoryExportService {
	return &historyExportServiceImpl{
		history: history,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// ExportHistory writes the history to an .xlsx file and returns its path relative to storage
func (s *historyExportServiceImpl) ExportHistory(ctx context.Context, entityID int64) (string, error) {
	entries, err := s.history.GetHistory(ctx, entityID)
	if err != nil {
		return "", err
	}

	content, err := renderHistory(entries)
	if err != nil {
		s.logger.Error("Failed to render history workbook", "entity_id", entityID, "error", err)
		return "", err
	}

	path := fmt.Sprintf("%s/entity_%d_%s.xlsx", exportDir, entityID, s.now().UTC().Format("20060102T150405"))
	if err := s.storage.Save(ctx, path, content); err != nil {
		s.logger.Error("Failed to save history export", "entity_id", entityID, "path", path, "error", err)
		return "", fmt.Errorf("failed to save history export: %w", err)
	}

	s.logger.Info("History exported", "entity_id", entityID, "entries", len(entries), "path", path)
	return path, nil
}

func renderHistory(entries []*entity.History) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, title := range historyHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(historySheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to set header %s: %w", title, err)
		}
	}

	for i, h := range entries {
		row := []interface{}{
			h.ID,
			h.CreatedAt.UTC().Format(timeCellFormat),
			h.TransitionName,
			h.FromState,
			h.ToState,
			h.UserID,
			h.Comment,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write history row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
