package postgres

import (
	"context"

	"github.com/open-courseware/question-engine/internal/repositories"
	"gorm.io/gorm"
)

// Repository is the postgres-backed aggregate of all repositories.
type Repository struct {
	db          *gorm.DB
	question    repositories.QuestionRepository
	answerState repositories.AnswerStateRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:          db,
		question:    NewQuestionPostgreSQL(db),
		answerState: NewAnswerStatePostgreSQL(db),
	}
}

func (r *Repository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *Repository) AnswerState() repositories.AnswerStateRepository {
	return r.answerState
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
