package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/open-courseware/question-engine/internal/cache"
	"github.com/open-courseware/question-engine/internal/engine"
	"github.com/open-courseware/question-engine/internal/events"
	"github.com/open-courseware/question-engine/internal/models"
	"github.com/open-courseware/question-engine/internal/olx"
	"github.com/open-courseware/question-engine/internal/repositories"
	"github.com/open-courseware/question-engine/internal/validator"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionService handles the authoring side: importing OLX definitions,
// listing and deleting questions, and exporting the catalog.
type QuestionService interface {
	Import(ctx context.Context, rawOLX []byte, createdBy string) (*models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetDocument(ctx context.Context, id uint) (*models.QuestionDocument, error)
	List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
	Delete(ctx context.Context, id uint, deletedBy string) error
	ExportQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]byte, error)
}

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	cache     cache.CacheService
}

func NewQuestionService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
		cache:     cacheService,
	}
}

// ===== AUTHORING OPERATIONS =====

func (s *questionService) Import(ctx context.Context, rawOLX []byte, createdBy string) (*models.Question, error) {
	doc, err := olx.Parse(rawOLX)
	if err != nil {
		return nil, err
	}

	if errs := s.validator.ValidateDocument(doc); len(errs) > 0 {
		return nil, errs
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize question document: %w", err)
	}

	question := &models.Question{
		DisplayName: doc.DisplayName,
		Type:        doc.Type,
		Document:    datatypes.JSON(docJSON),
		CreatedBy:   createdBy,
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to store question: %w", err)
	}

	s.logger.Info("Question imported",
		"question_id", question.ID,
		"type", question.Type,
		"created_by", createdBy)

	s.publishEvent(ctx, events.NewQuestionEvent(events.EventQuestionImported, events.QuestionImportedEvent{
		QuestionID:   question.ID,
		DisplayName:  question.DisplayName,
		QuestionType: string(question.Type),
		CreatedBy:    createdBy,
	}))

	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

func (s *questionService) GetDocument(ctx context.Context, id uint) (*models.QuestionDocument, error) {
	question, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var doc models.QuestionDocument
	if err := json.Unmarshal(question.Document, &doc); err != nil {
		s.logger.Error("Stored question document is unreadable", "question_id", id, "error", err)
		return nil, engine.ErrCorruptQuestion
	}
	return &doc, nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return s.repo.Question().List(ctx, filters)
}

func (s *questionService) Delete(ctx context.Context, id uint, deletedBy string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Question().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	// Cached student views for this question are stale now.
	if err := s.cache.DeletePattern(ctx, viewCacheKey(id, "*")); err != nil {
		s.logger.Warn("Failed to invalidate cached views", "question_id", id, "error", err)
	}

	s.logger.Info("Question deleted", "question_id", id, "deleted_by", deletedBy)

	s.publishEvent(ctx, events.NewQuestionEvent(events.EventQuestionDeleted, events.QuestionDeletedEvent{
		QuestionID: id,
		DeletedBy:  deletedBy,
	}))

	return nil
}

// ===== EXPORT OPERATIONS =====

func (s *questionService) ExportQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]byte, error) {
	questions, _, err := s.repo.Question().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions for export: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Questions"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"ID", "Display Name", "Type", "Question", "Max Attempts", "Weight", "Answer Summary", "Submissions", "Created By", "Created At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	rowNum := 2
	for _, question := range questions {
		row, err := s.questionToExportRow(ctx, question)
		if err != nil {
			s.logger.Warn("Skipping unreadable question in export", "question_id", question.ID, "error", err)
			continue
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowNum)
			f.SetCellValue(sheetName, cell, value)
		}
		rowNum++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *questionService) questionToExportRow(ctx context.Context, question *models.Question) ([]interface{}, error) {
	var doc models.QuestionDocument
	if err := json.Unmarshal(question.Document, &doc); err != nil {
		return nil, err
	}

	submissions, err := s.repo.AnswerState().CountByQuestion(ctx, question.ID)
	if err != nil {
		s.logger.Warn("Failed to count submissions for export", "question_id", question.ID, "error", err)
		submissions = 0
	}

	return []interface{}{
		question.ID,
		question.DisplayName,
		string(question.Type),
		doc.Question,
		doc.MaxAttempts,
		doc.Weight,
		answerSummary(&doc),
		submissions,
		question.CreatedBy,
		question.CreatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}

// answerSummary renders a human-readable description of the correct answer
// for spreadsheet export.
func answerSummary(doc *models.QuestionDocument) string {
	switch doc.Type {
	case models.TypeStringResponse:
		return strings.Join(doc.String.Answers, " | ")
	case models.TypeOptionResponse:
		for _, opt := range doc.Option.Options {
			if opt.Correct {
				return opt.Content
			}
		}
		return ""
	case models.TypeChoiceResponse:
		var correct []string
		for _, choice := range doc.Choice.Choices {
			if choice.Correct {
				correct = append(correct, choice.Content)
			}
		}
		return strings.Join(correct, " | ")
	default:
		return ""
	}
}

func (s *questionService) publishEvent(ctx context.Context, event *events.QuestionEvent) {
	if err := s.publisher.PublishQuestionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish question event", "event_type", event.Type, "error", err)
	}
}
