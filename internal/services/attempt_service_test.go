package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/open-courseware/question-engine/internal/engine"
	"github.com/open-courseware/question-engine/internal/events"
	"github.com/open-courseware/question-engine/internal/models"
	"github.com/open-courseware/question-engine/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const storedStringDoc = `{"type":"stringresponse","question":"Name the red planet.","display_name":"Red planet","max_attempts":3,"weight":1,"hints":[],"stringresponse":{"answers":["Mars"],"comments":{"Mars":"Well done."}}}`

func newAttemptServiceForTest() (AttemptService, *MockRepository, *events.MockEventPublisher, *memoryCache) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := NewMockRepository()
	publisher := events.NewMockEventPublisher(logger)
	cacheService := newMemoryCache()

	questions := NewQuestionService(repo, logger, validator.New(), publisher, cacheService)
	service := NewAttemptService(repo, questions, engine.New(), logger, publisher, cacheService)
	return service, repo, publisher, cacheService
}

func storedQuestion() *models.Question {
	return &models.Question{
		ID:       7,
		Type:     models.TypeStringResponse,
		Document: datatypes.JSON(storedStringDoc),
	}
}

func TestAttemptService_GetStudentView(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh student gets unanswered view", func(t *testing.T) {
		service, repo, _, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		repo.answerState.On("Get", ctx, uint(7), "student-1").Return(nil, gorm.ErrRecordNotFound)

		view, err := service.GetStudentView(ctx, 7, "student-1")
		require.NoError(t, err)

		assert.Equal(t, 3, view.MaxAttempts)
		assert.Equal(t, 0, view.StudentAttempts)
		assert.Nil(t, view.Correct)
		assert.True(t, view.QuestionData.StudentAnswer.IsEmpty())
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		service, repo, _, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil).Once()
		repo.answerState.On("Get", ctx, uint(7), "student-1").Return(nil, gorm.ErrRecordNotFound).Once()

		first, err := service.GetStudentView(ctx, 7, "student-1")
		require.NoError(t, err)

		second, err := service.GetStudentView(ctx, 7, "student-1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		repo.question.AssertExpectations(t)
	})

	t.Run("stored answer is reflected", func(t *testing.T) {
		service, repo, _, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		repo.answerState.On("Get", ctx, uint(7), "student-1").Return(&models.AnswerState{
			QuestionID: 7,
			StudentID:  "student-1",
			Answer:     datatypes.JSON(`{"response":"Mars"}`),
			Attempts:   1,
		}, nil)

		view, err := service.GetStudentView(ctx, 7, "student-1")
		require.NoError(t, err)

		assert.Equal(t, 1, view.StudentAttempts)
		require.NotNil(t, view.Correct)
		assert.True(t, *view.Correct)
		assert.Equal(t, 1.0, view.CurrentScore)
	})
}

func TestAttemptService_SubmitAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("correct submission stores state and publishes events", func(t *testing.T) {
		service, repo, publisher, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		// GetForUpdate seeds and locks the row, so a first submission sees
		// an empty state rather than a missing one.
		repo.answerState.On("GetForUpdate", ctx, mock.Anything, uint(7), "student-1").Return(&models.AnswerState{
			QuestionID: 7,
			StudentID:  "student-1",
			Answer:     datatypes.JSON(`{}`),
			Attempts:   0,
		}, nil)

		var stored *models.AnswerState
		repo.answerState.On("Upsert", ctx, mock.Anything, mock.AnythingOfType("*models.AnswerState")).
			Run(func(args mock.Arguments) { stored = args.Get(2).(*models.AnswerState) }).
			Return(nil)

		view, err := service.SubmitAnswer(ctx, 7, "student-1", map[string]any{"response": "Mars"})
		require.NoError(t, err)

		require.NotNil(t, stored)
		assert.Equal(t, 1, stored.Attempts)
		assert.JSONEq(t, `{"response":"Mars"}`, string(stored.Answer))

		require.NotNil(t, view.Correct)
		assert.True(t, *view.Correct)
		require.NotNil(t, view.QuestionData.Comment)
		assert.Equal(t, "Well done.", *view.QuestionData.Comment)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 2)
		assert.Equal(t, events.EventQuestionAttempted, published[0].Type)
		assert.Equal(t, events.EventQuestionAnsweredCorrectly, published[1].Type)
	})

	t.Run("incorrect submission publishes only the attempt event", func(t *testing.T) {
		service, repo, publisher, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		repo.answerState.On("GetForUpdate", ctx, mock.Anything, uint(7), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.answerState.On("Upsert", ctx, mock.Anything, mock.Anything).Return(nil)

		view, err := service.SubmitAnswer(ctx, 7, "student-1", map[string]any{"response": "Venus"})
		require.NoError(t, err)
		require.NotNil(t, view.Correct)
		assert.False(t, *view.Correct)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventQuestionAttempted, published[0].Type)
	})

	t.Run("submission invalidates the cached view", func(t *testing.T) {
		service, repo, _, cacheService := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		repo.answerState.On("Get", ctx, uint(7), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.answerState.On("GetForUpdate", ctx, mock.Anything, uint(7), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.answerState.On("Upsert", ctx, mock.Anything, mock.Anything).Return(nil)

		_, err := service.GetStudentView(ctx, 7, "student-1")
		require.NoError(t, err)

		_, err = service.SubmitAnswer(ctx, 7, "student-1", map[string]any{"response": "Venus"})
		require.NoError(t, err)

		var cached models.StudentViewState
		assert.Error(t, cacheService.Get(ctx, viewCacheKey(7, "student-1"), &cached))
	})

	t.Run("exhausted attempts are rejected without storing", func(t *testing.T) {
		service, repo, publisher, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		repo.answerState.On("GetForUpdate", ctx, mock.Anything, uint(7), "student-1").Return(&models.AnswerState{
			QuestionID: 7,
			StudentID:  "student-1",
			Answer:     datatypes.JSON(`{"response":"Venus"}`),
			Attempts:   3,
		}, nil)

		_, err := service.SubmitAnswer(ctx, 7, "student-1", map[string]any{"response": "Mars"})
		assert.ErrorIs(t, err, engine.ErrAttemptsExhausted)

		repo.answerState.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, publisher.GetPublishedEvents())
	})

	t.Run("correct answers freeze the question", func(t *testing.T) {
		service, repo, _, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		repo.answerState.On("GetForUpdate", ctx, mock.Anything, uint(7), "student-1").Return(&models.AnswerState{
			QuestionID: 7,
			StudentID:  "student-1",
			Answer:     datatypes.JSON(`{"response":"Mars"}`),
			Attempts:   1,
		}, nil)

		_, err := service.SubmitAnswer(ctx, 7, "student-1", map[string]any{"response": "Venus"})
		assert.ErrorIs(t, err, engine.ErrAlreadyCorrect)
	})

	t.Run("malformed payload does not burn an attempt", func(t *testing.T) {
		service, repo, _, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(storedQuestion(), nil)
		repo.answerState.On("GetForUpdate", ctx, mock.Anything, uint(7), "student-1").Return(nil, gorm.ErrRecordNotFound)

		_, err := service.SubmitAnswer(ctx, 7, "student-1", map[string]any{"wrong": "shape"})
		var fieldErr *engine.FieldError
		require.ErrorAs(t, err, &fieldErr)

		repo.answerState.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing question", func(t *testing.T) {
		service, repo, _, _ := newAttemptServiceForTest()
		repo.question.On("GetByID", ctx, uint(404)).Return(nil, gorm.ErrRecordNotFound)

		_, err := service.SubmitAnswer(ctx, 404, "student-1", map[string]any{"response": "Mars"})
		assert.ErrorIs(t, err, ErrQuestionNotFound)
	})
}
