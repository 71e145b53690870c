package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// StudentAnswer is the latest validated answer a student submitted for one
// question. The populated field depends on the question type:
//
//	stringresponse: Response
//	optionresponse: Index
//	choiceresponse: Selected
//
// A zero value means no submission has been made yet.
type StudentAnswer struct {
	Response *string `json:"response,omitempty"`
	Index    *int    `json:"index,omitempty"`
	Selected []int   `json:"selected,omitempty"`
}

// IsEmpty reports whether no answer has been stored.
func (a StudentAnswer) IsEmpty() bool {
	return a.Response == nil && a.Index == nil && a.Selected == nil
}

// MarshalJSON keeps the empty multi-select submission distinguishable from
// no submission: a non-nil empty Selected serializes as "selected": [],
// which omitempty on a slice would drop.
func (a StudentAnswer) MarshalJSON() ([]byte, error) {
	out := struct {
		Response *string `json:"response,omitempty"`
		Index    *int    `json:"index,omitempty"`
		Selected *[]int  `json:"selected,omitempty"`
	}{Response: a.Response, Index: a.Index}
	if a.Selected != nil {
		out.Selected = &a.Selected
	}
	return json.Marshal(out)
}

// AnswerState is the persisted per-student, per-question submission state.
// Attempts only ever increases; the enclosing service serializes concurrent
// read-modify-write cycles with a row lock.
type AnswerState struct {
	QuestionID uint           `json:"question_id" gorm:"primaryKey;autoIncrement:false"`
	StudentID  string         `json:"student_id" gorm:"primaryKey;size:64"`
	Answer     datatypes.JSON `json:"answer" gorm:"type:jsonb"`
	Attempts   int            `json:"attempts" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AnswerState) TableName() string {
	return "answer_states"
}
