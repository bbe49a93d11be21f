package exam

import "errors"

// Sentinel errors mapped to HTTP statuses by the API layer.
var (
	// ErrTopicRequired is a validation failure raised before any upstream call.
	ErrTopicRequired = errors.New("el campo 'topic' es obligatorio")
	// ErrEmptyIndex means retrieval produced no usable context. It is rendered
	// to the user as an actionable message, distinct from generic failures.
	ErrEmptyIndex = errors.New("el índice no tiene documentos; guarda o indexa algunos apuntes primero")
)

// Request is the ingest-and-search payload: a topic to examine on, plus an
// optional document to ingest inline before retrieval.
type Request struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// Exam is transient: produced per request, never persisted server-side.
type Exam struct {
	ExamTitle string     `json:"examTitle" validate:"required"`
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
}

type Question struct {
	ID                 string   `json:"id" validate:"required"`
	QuestionText       string   `json:"questionText" validate:"required"`
	Options            []string `json:"options" validate:"required,len=4,dive,required"`
	CorrectOptionIndex int      `json:"correctOptionIndex" validate:"gte=0"`
	Explanation        string   `json:"explanation"`
}
