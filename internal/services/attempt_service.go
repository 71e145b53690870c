package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/open-courseware/question-engine/internal/cache"
	"github.com/open-courseware/question-engine/internal/engine"
	"github.com/open-courseware/question-engine/internal/events"
	"github.com/open-courseware/question-engine/internal/models"
	"github.com/open-courseware/question-engine/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// viewCacheTTL bounds staleness of cached student views. Writes invalidate
// eagerly; the TTL only covers invalidation failures.
const viewCacheTTL = 5 * time.Minute

// AttemptService handles the student side: reading the current view and
// submitting answers.
type AttemptService interface {
	GetStudentView(ctx context.Context, questionID uint, studentID string) (*models.StudentViewState, error)
	SubmitAnswer(ctx context.Context, questionID uint, studentID string, payload map[string]any) (*models.StudentViewState, error)
}

type attemptService struct {
	repo      repositories.Repository
	questions QuestionService
	engine    *engine.Engine
	logger    *slog.Logger
	publisher events.EventPublisher
	cache     cache.CacheService
}

func NewAttemptService(
	repo repositories.Repository,
	questions QuestionService,
	eng *engine.Engine,
	logger *slog.Logger,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
) AttemptService {
	return &attemptService{
		repo:      repo,
		questions: questions,
		engine:    eng,
		logger:    logger,
		publisher: publisher,
		cache:     cacheService,
	}
}

// ===== STUDENT OPERATIONS =====

func (s *attemptService) GetStudentView(ctx context.Context, questionID uint, studentID string) (*models.StudentViewState, error) {
	cacheKey := viewCacheKey(questionID, studentID)

	var cached models.StudentViewState
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("View cache read failed", "question_id", questionID, "error", err)
	}

	doc, err := s.questions.GetDocument(ctx, questionID)
	if err != nil {
		return nil, err
	}

	answer, attempts, err := s.loadAnswerState(ctx, questionID, studentID)
	if err != nil {
		return nil, err
	}

	view, err := s.engine.Project(doc, answer, attempts)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, view, viewCacheTTL); err != nil {
		s.logger.Warn("View cache write failed", "question_id", questionID, "error", err)
	}

	return view, nil
}

func (s *attemptService) SubmitAnswer(ctx context.Context, questionID uint, studentID string, payload map[string]any) (*models.StudentViewState, error) {
	doc, err := s.questions.GetDocument(ctx, questionID)
	if err != nil {
		return nil, err
	}

	var result *engine.SubmitResult
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		// Lock the state row so concurrent submissions for the same
		// student serialize and each one burns exactly one attempt.
		answer, attempts, txErr := s.loadAnswerStateForUpdate(ctx, tx, questionID, studentID)
		if txErr != nil {
			return txErr
		}

		result, txErr = s.engine.Submit(doc, answer, attempts, payload)
		if txErr != nil {
			return txErr
		}

		answerJSON, txErr := json.Marshal(result.Answer)
		if txErr != nil {
			return fmt.Errorf("failed to serialize answer: %w", txErr)
		}

		return s.repo.AnswerState().Upsert(ctx, tx, &models.AnswerState{
			QuestionID: questionID,
			StudentID:  studentID,
			Answer:     datatypes.JSON(answerJSON),
			Attempts:   result.Attempts,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, viewCacheKey(questionID, studentID)); err != nil {
		s.logger.Warn("View cache invalidation failed", "question_id", questionID, "error", err)
	}

	correct := result.Score.Correct != nil && *result.Score.Correct

	s.logger.Info("Answer submitted",
		"question_id", questionID,
		"student_id", studentID,
		"attempt", result.Attempts,
		"correct", correct)

	attempted := events.QuestionAttemptedEvent{
		QuestionID:   questionID,
		StudentID:    studentID,
		QuestionType: string(doc.Type),
		Attempt:      result.Attempts,
		MaxAttempts:  doc.MaxAttempts,
		Correct:      correct,
		Earned:       result.Score.Earned,
		Possible:     result.Score.Possible,
	}
	s.publishEvent(ctx, events.NewQuestionEvent(events.EventQuestionAttempted, attempted))
	if correct {
		s.publishEvent(ctx, events.NewQuestionEvent(events.EventQuestionAnsweredCorrectly, attempted))
	}

	return result.View, nil
}

// ===== HELPERS =====

func (s *attemptService) loadAnswerState(ctx context.Context, questionID uint, studentID string) (models.StudentAnswer, int, error) {
	state, err := s.repo.AnswerState().Get(ctx, questionID, studentID)
	return decodeAnswerState(state, err)
}

func (s *attemptService) loadAnswerStateForUpdate(ctx context.Context, tx *gorm.DB, questionID uint, studentID string) (models.StudentAnswer, int, error) {
	state, err := s.repo.AnswerState().GetForUpdate(ctx, tx, questionID, studentID)
	return decodeAnswerState(state, err)
}

// decodeAnswerState turns a repository result into the engine's answer plus
// attempt count. A missing row means the student has never submitted.
func decodeAnswerState(state *models.AnswerState, err error) (models.StudentAnswer, int, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StudentAnswer{}, 0, nil
		}
		return models.StudentAnswer{}, 0, fmt.Errorf("failed to load answer state: %w", err)
	}

	var answer models.StudentAnswer
	if len(state.Answer) > 0 {
		if err := json.Unmarshal(state.Answer, &answer); err != nil {
			return models.StudentAnswer{}, 0, fmt.Errorf("failed to decode stored answer: %w", err)
		}
	}
	return answer, state.Attempts, nil
}

func viewCacheKey(questionID uint, studentID string) string {
	return fmt.Sprintf("question:%d:view:%s", questionID, studentID)
}

func (s *attemptService) publishEvent(ctx context.Context, event *events.QuestionEvent) {
	if err := s.publisher.PublishQuestionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish question event", "event_type", event.Type, "error", err)
	}
}
