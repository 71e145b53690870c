package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/open-courseware/question-engine/internal/cache"
	"github.com/open-courseware/question-engine/internal/models"
	"github.com/open-courseware/question-engine/internal/repositories"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(ctx context.Context, question *models.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestionRepository) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Question), args.Get(1).(int64), args.Error(2)
}

// MockAnswerStateRepository is a mock implementation of AnswerStateRepository
type MockAnswerStateRepository struct {
	mock.Mock
}

func (m *MockAnswerStateRepository) Get(ctx context.Context, questionID uint, studentID string) (*models.AnswerState, error) {
	args := m.Called(ctx, questionID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnswerState), args.Error(1)
}

func (m *MockAnswerStateRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, questionID uint, studentID string) (*models.AnswerState, error) {
	args := m.Called(ctx, tx, questionID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnswerState), args.Error(1)
}

func (m *MockAnswerStateRepository) Upsert(ctx context.Context, tx *gorm.DB, state *models.AnswerState) error {
	args := m.Called(ctx, tx, state)
	return args.Error(0)
}

func (m *MockAnswerStateRepository) CountByQuestion(ctx context.Context, questionID uint) (int64, error) {
	args := m.Called(ctx, questionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockRepository aggregates the entity mocks and runs transactions inline.
type MockRepository struct {
	question    *MockQuestionRepository
	answerState *MockAnswerStateRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		question:    &MockQuestionRepository{},
		answerState: &MockAnswerStateRepository{},
	}
}

func (m *MockRepository) Question() repositories.QuestionRepository {
	return m.question
}

func (m *MockRepository) AnswerState() repositories.AnswerStateRepository {
	return m.answerState
}

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// memoryCache is an in-memory CacheService for tests.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = data
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}
