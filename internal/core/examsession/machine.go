package examsession

import (
	"errors"
	"fmt"
	"sync"

	"nabook/internal/core/exam"
)

// State of an exam-taking attempt. A machine is only built from a successfully
// generated exam, so it starts InProgress; loading and generation failures
// belong to the request that created it.
type State string

const (
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
)

// Criticality levels for weak points. Derivation currently always emits HIGH.
const (
	CriticalityLow    = "LOW"
	CriticalityMedium = "MEDIUM"
	CriticalityHigh   = "HIGH"
)

var (
	ErrNoQuestions       = errors.New("el examen no tiene preguntas")
	ErrAlreadyFinished   = errors.New("el examen ya ha terminado")
	ErrSelectionRequired = errors.New("selecciona una opción antes de continuar")
)

// WeakPoint is derived at exam completion for every incorrectly answered (or
// unanswered) question. Batches supersede each other wholesale; they are never
// merged.
type WeakPoint struct {
	Topic              string `json:"topic"`
	Description        string `json:"description"`
	Criticality        string `json:"criticality"`
	MatchedTextSnippet string `json:"matchedTextSnippet"`
}

// Machine steps through an exam's questions one at a time, recording at most
// one (overwritable) selection per question. It is safe for concurrent use:
// request handlers for the same attempt run on separate goroutines.
type Machine struct {
	mu         sync.Mutex
	exam       exam.Exam
	current    int
	selections map[string]int
	state      State
}

func NewMachine(e exam.Exam) (*Machine, error) {
	if len(e.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &Machine{
		exam:       e,
		selections: make(map[string]int, len(e.Questions)),
		state:      StateInProgress,
	}, nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the question under consideration and its 0-based index.
func (m *Machine) Current() (exam.Question, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exam.Questions[m.current], m.current
}

// SelectOption records or overwrites the selection for the current question.
// It does not advance.
func (m *Machine) SelectOption(optionIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateFinished {
		return ErrAlreadyFinished
	}
	q := m.exam.Questions[m.current]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return fmt.Errorf("opción %d fuera de rango [0,%d)", optionIndex, len(q.Options))
	}
	m.selections[q.ID] = optionIndex
	return nil
}

// Next advances to the following question, or finishes the exam when the
// current question is the last one. It refuses to advance past a question
// without a recorded selection.
func (m *Machine) Next() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateFinished {
		return m.state, ErrAlreadyFinished
	}
	q := m.exam.Questions[m.current]
	if _, ok := m.selections[q.ID]; !ok {
		return m.state, ErrSelectionRequired
	}
	if m.current < len(m.exam.Questions)-1 {
		m.current++
		return m.state, nil
	}
	m.state = StateFinished
	return m.state, nil
}

// WeakPoints scans all questions and emits one weak point per question whose
// recorded selection differs from the correct option, unanswered included.
// The result reflects only this exam; callers replace any stored list with it.
func (m *Machine) WeakPoints() []WeakPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	points := make([]WeakPoint, 0, len(m.exam.Questions))
	for _, q := range m.exam.Questions {
		selected, answered := m.selections[q.ID]
		if answered && selected == q.CorrectOptionIndex {
			continue
		}
		points = append(points, WeakPoint{
			Topic:              "Concepto: " + truncateRunes(q.QuestionText, 30) + "...",
			Description:        "Fallaste esta pregunta. " + q.Explanation,
			Criticality:        CriticalityHigh,
			MatchedTextSnippet: q.QuestionText,
		})
	}
	return points
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
