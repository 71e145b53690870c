package services

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/open-courseware/question-engine/internal/engine"
	"github.com/open-courseware/question-engine/internal/events"
	"github.com/open-courseware/question-engine/internal/models"
	"github.com/open-courseware/question-engine/internal/olx"
	"github.com/open-courseware/question-engine/internal/repositories"
	"github.com/open-courseware/question-engine/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const stringOLX = `
<problem display_name="Red planet" max_attempts="3">
  <stringresponse answer="Mars">
    <label>Name the red planet.</label>
    <correcthint>Named for the Roman god of war.</correcthint>
  </stringresponse>
</problem>`

func newQuestionServiceForTest() (QuestionService, *MockRepository, *events.MockEventPublisher, *memoryCache) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := NewMockRepository()
	publisher := events.NewMockEventPublisher(logger)
	cacheService := newMemoryCache()
	service := NewQuestionService(repo, logger, validator.New(), publisher, cacheService)
	return service, repo, publisher, cacheService
}

func TestQuestionService_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("valid OLX is stored and announced", func(t *testing.T) {
		service, repo, publisher, _ := newQuestionServiceForTest()
		repo.question.On("Create", ctx, mock.AnythingOfType("*models.Question")).Return(nil)

		question, err := service.Import(ctx, []byte(stringOLX), "author-1")
		require.NoError(t, err)

		assert.Equal(t, models.TypeStringResponse, question.Type)
		assert.Equal(t, "Red planet", question.DisplayName)
		assert.Equal(t, "author-1", question.CreatedBy)
		repo.question.AssertExpectations(t)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventQuestionImported, published[0].Type)
	})

	t.Run("malformed OLX is rejected before storage", func(t *testing.T) {
		service, repo, publisher, _ := newQuestionServiceForTest()

		_, err := service.Import(ctx, []byte("<problem><p>No response here.</p></problem>"), "author-1")
		require.Error(t, err)
		var malformedErr *olx.MalformedDocumentError
		assert.ErrorAs(t, err, &malformedErr)

		repo.question.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, publisher.GetPublishedEvents())
	})
}

func TestQuestionService_GetDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips the stored document", func(t *testing.T) {
		service, repo, _, _ := newQuestionServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(&models.Question{
			ID:       7,
			Type:     models.TypeStringResponse,
			Document: datatypes.JSON(`{"type":"stringresponse","question":"Name the red planet.","max_attempts":3,"weight":1,"stringresponse":{"answers":["Mars"],"comments":{}}}`),
		}, nil)

		doc, err := service.GetDocument(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, models.TypeStringResponse, doc.Type)
		assert.Equal(t, []string{"Mars"}, doc.String.Answers)
		assert.Equal(t, 3, doc.MaxAttempts)
	})

	t.Run("missing question", func(t *testing.T) {
		service, repo, _, _ := newQuestionServiceForTest()
		repo.question.On("GetByID", ctx, uint(404)).Return(nil, gorm.ErrRecordNotFound)

		_, err := service.GetDocument(ctx, 404)
		assert.ErrorIs(t, err, ErrQuestionNotFound)
	})

	t.Run("unreadable document", func(t *testing.T) {
		service, repo, _, _ := newQuestionServiceForTest()
		repo.question.On("GetByID", ctx, uint(8)).Return(&models.Question{
			ID:       8,
			Document: datatypes.JSON(`{not json`),
		}, nil)

		_, err := service.GetDocument(ctx, 8)
		assert.ErrorIs(t, err, engine.ErrCorruptQuestion)
	})
}

func TestQuestionService_ExportQuestions(t *testing.T) {
	ctx := context.Background()

	service, repo, _, _ := newQuestionServiceForTest()
	filters := repositories.QuestionFilters{}
	repo.question.On("List", ctx, filters).Return([]*models.Question{
		{
			ID:          7,
			DisplayName: "Red planet",
			Type:        models.TypeStringResponse,
			Document:    datatypes.JSON(`{"type":"stringresponse","question":"Name the red planet.","max_attempts":3,"weight":1,"stringresponse":{"answers":["Mars","The red planet"],"comments":{}}}`),
			CreatedBy:   "author-1",
		},
		{
			ID:       8,
			Document: datatypes.JSON(`{not json`),
		},
	}, int64(2), nil)
	repo.answerState.On("CountByQuestion", ctx, uint(7)).Return(int64(5), nil)

	data, err := service.ExportQuestions(ctx, filters)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Questions")
	require.NoError(t, err)
	// Header plus the readable question. The unreadable one is skipped.
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Red planet", rows[1][1])
	assert.Equal(t, "stringresponse", rows[1][2])
	assert.Equal(t, "Mars | The red planet", rows[1][6])
	assert.Equal(t, "5", rows[1][7])
}

func TestQuestionService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and invalidates cached views", func(t *testing.T) {
		service, repo, publisher, cacheService := newQuestionServiceForTest()
		repo.question.On("GetByID", ctx, uint(7)).Return(&models.Question{ID: 7}, nil)
		repo.question.On("Delete", ctx, uint(7)).Return(nil)

		cacheService.Set(ctx, viewCacheKey(7, "student-1"), "cached", 0)
		cacheService.Set(ctx, viewCacheKey(9, "student-1"), "cached", 0)

		err := service.Delete(ctx, 7, "author-1")
		require.NoError(t, err)

		var out string
		assert.Error(t, cacheService.Get(ctx, viewCacheKey(7, "student-1"), &out))
		assert.NoError(t, cacheService.Get(ctx, viewCacheKey(9, "student-1"), &out))

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventQuestionDeleted, published[0].Type)
	})

	t.Run("missing question", func(t *testing.T) {
		service, repo, _, _ := newQuestionServiceForTest()
		repo.question.On("GetByID", ctx, uint(404)).Return(nil, gorm.ErrRecordNotFound)

		err := service.Delete(ctx, 404, "author-1")
		assert.ErrorIs(t, err, ErrQuestionNotFound)
		repo.question.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
