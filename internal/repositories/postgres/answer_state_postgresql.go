package postgres

import (
	"context"

	"github.com/open-courseware/question-engine/internal/models"
	"github.com/open-courseware/question-engine/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerStatePostgreSQL struct {
	db *gorm.DB
}

func NewAnswerStatePostgreSQL(db *gorm.DB) repositories.AnswerStateRepository {
	return &AnswerStatePostgreSQL{db: db}
}

func (a AnswerStatePostgreSQL) Get(ctx context.Context, questionID uint, studentID string) (*models.AnswerState, error) {
	var state models.AnswerState
	err := a.db.WithContext(ctx).
		Where("question_id = ? AND student_id = ?", questionID, studentID).
		First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetForUpdate locks the state row for the duration of the transaction.
// Callers must pass the transaction handle, not the base connection.
//
// SELECT ... FOR UPDATE takes no lock on a row that does not exist, so a
// missing row is inserted first; two concurrent first submissions then
// contend on the same row instead of both reading attempts=0.
func (a AnswerStatePostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, questionID uint, studentID string) (*models.AnswerState, error) {
	seed := models.AnswerState{
		QuestionID: questionID,
		StudentID:  studentID,
		Answer:     datatypes.JSON("{}"),
	}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	var state models.AnswerState
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("question_id = ? AND student_id = ?", questionID, studentID).
		First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (a AnswerStatePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, state *models.AnswerState) error {
	db := tx
	if db == nil {
		db = a.db
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_id"}, {Name: "student_id"}},
			UpdateAll: true,
		}).
		Create(state).Error
}

func (a AnswerStatePostgreSQL) CountByQuestion(ctx context.Context, questionID uint) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.AnswerState{}).
		Where("question_id = ?", questionID).
		Count(&count).Error
	return count, err
}
