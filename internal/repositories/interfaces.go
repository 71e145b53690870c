package repositories

import (
	"context"

	"github.com/open-courseware/question-engine/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Type      *models.QuestionType `json:"type"`
	CreatedBy *string              `json:"created_by"`
	Search    string               `json:"search"` // matches display_name
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "display_name"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====

// QuestionRepository persists imported question documents.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)
}

// AnswerStateRepository persists per-student submission state. GetForUpdate
// must be called inside a transaction; it inserts the row when absent and
// takes a row lock, so concurrent submissions for the same student and
// question serialize even on the first attempt.
type AnswerStateRepository interface {
	Get(ctx context.Context, questionID uint, studentID string) (*models.AnswerState, error)
	GetForUpdate(ctx context.Context, tx *gorm.DB, questionID uint, studentID string) (*models.AnswerState, error)
	Upsert(ctx context.Context, tx *gorm.DB, state *models.AnswerState) error
	CountByQuestion(ctx context.Context, questionID uint) (int64, error)
}

// Repository aggregates the per-entity repositories plus transaction control.
type Repository interface {
	Question() QuestionRepository
	AnswerState() AnswerStateRepository

	// WithTransaction runs fn inside one database transaction.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
