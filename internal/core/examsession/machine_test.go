package examsession

import (
	"sync"
	"testing"

	"nabook/internal/core/exam"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeQuestionExam() exam.Exam {
	return exam.Exam{
		ExamTitle: "Biología celular",
		Questions: []exam.Question{
			{
				ID:                 "q1",
				QuestionText:       "¿Qué orgánulo produce ATP?",
				Options:            []string{"Mitocondria", "Ribosoma", "Lisosoma", "Núcleo"},
				CorrectOptionIndex: 0,
				Explanation:        "La mitocondria es la central energética de la célula.",
			},
			{
				ID:                 "q2",
				QuestionText:       "¿Cuál es la función principal de la membrana plasmática en la célula?",
				Options:            []string{"Sintetizar proteínas", "Regular el intercambio", "Almacenar ADN", "Digerir residuos"},
				CorrectOptionIndex: 1,
				Explanation:        "La membrana regula qué entra y sale de la célula.",
			},
			{
				ID:                 "q3",
				QuestionText:       "¿Dónde ocurre la síntesis de proteínas?",
				Options:            []string{"Núcleo", "Mitocondria", "Ribosoma", "Vacuola"},
				CorrectOptionIndex: 2,
				Explanation:        "Los ribosomas traducen el ARN mensajero en proteínas.",
			},
		},
	}
}

func TestNewMachineRejectsEmptyExam(t *testing.T) {
	_, err := NewMachine(exam.Exam{ExamTitle: "vacío"})
	require.ErrorIs(t, err, ErrNoQuestions)
}

func TestNextRequiresSelection(t *testing.T) {
	m, err := NewMachine(threeQuestionExam())
	require.NoError(t, err)

	st, err := m.Next()
	require.ErrorIs(t, err, ErrSelectionRequired)
	assert.Equal(t, StateInProgress, st)

	_, idx := m.Current()
	assert.Equal(t, 0, idx)
}

func TestSelectOptionValidatesRange(t *testing.T) {
	m, err := NewMachine(threeQuestionExam())
	require.NoError(t, err)

	require.Error(t, m.SelectOption(-1))
	require.Error(t, m.SelectOption(4))
	require.NoError(t, m.SelectOption(3))
}

func TestSelectionOverwriteCountsLastAnswer(t *testing.T) {
	m, err := NewMachine(threeQuestionExam())
	require.NoError(t, err)

	// First question: pick wrong, then correct; the overwrite must win.
	require.NoError(t, m.SelectOption(3))
	require.NoError(t, m.SelectOption(0))
	_, err = m.Next()
	require.NoError(t, err)

	require.NoError(t, m.SelectOption(1))
	_, err = m.Next()
	require.NoError(t, err)

	require.NoError(t, m.SelectOption(2))
	st, err := m.Next()
	require.NoError(t, err)
	assert.Equal(t, StateFinished, st)

	assert.Empty(t, m.WeakPoints())
}

func TestWeakPointsForWrongAndUnansweredQuestions(t *testing.T) {
	e := threeQuestionExam()
	m, err := NewMachine(e)
	require.NoError(t, err)

	require.NoError(t, m.SelectOption(0)) // q1 correct
	_, err = m.Next()
	require.NoError(t, err)
	require.NoError(t, m.SelectOption(3)) // q2 wrong
	_, err = m.Next()
	require.NoError(t, err)

	// q3 never answered: the scan still reports it.
	points := m.WeakPoints()
	require.Len(t, points, 2)

	q2 := e.Questions[1]
	expectedTopic := "Concepto: " + string([]rune(q2.QuestionText)[:30]) + "..."
	assert.Equal(t, expectedTopic, points[0].Topic)
	assert.Equal(t, "Fallaste esta pregunta. "+q2.Explanation, points[0].Description)
	assert.Equal(t, CriticalityHigh, points[0].Criticality)
	assert.Equal(t, q2.QuestionText, points[0].MatchedTextSnippet)

	q3 := e.Questions[2]
	assert.Equal(t, q3.QuestionText, points[1].MatchedTextSnippet)
}

func TestWeakPointTopicKeepsShortQuestionsWhole(t *testing.T) {
	e := threeQuestionExam()
	m, err := NewMachine(e)
	require.NoError(t, err)

	require.NoError(t, m.SelectOption(1)) // wrong
	points := m.WeakPoints()
	require.NotEmpty(t, points)

	// q1 is under 30 runes, so no truncation before the ellipsis.
	assert.Equal(t, "Concepto: "+e.Questions[0].QuestionText+"...", points[0].Topic)
}

// Duplicate answer submissions for one attempt arrive on separate request
// goroutines; the machine must tolerate them (run with -race).
func TestConcurrentSelectionsAreSafe(t *testing.T) {
	m, err := NewMachine(threeQuestionExam())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = m.SelectOption(option % 4)
				_, _ = m.Current()
				_ = m.State()
			}
		}(g)
	}
	wg.Wait()

	// One of the concurrent selections must have stuck.
	assert.Equal(t, StateInProgress, m.State())
	_, err = m.Next()
	require.NoError(t, err)
}

func TestFinishedMachineRejectsFurtherInput(t *testing.T) {
	m, err := NewMachine(exam.Exam{
		ExamTitle: "Mini",
		Questions: []exam.Question{{
			ID:                 "q1",
			QuestionText:       "¿2+2?",
			Options:            []string{"3", "4", "5", "6"},
			CorrectOptionIndex: 1,
		}},
	})
	require.NoError(t, err)

	require.NoError(t, m.SelectOption(1))
	st, err := m.Next()
	require.NoError(t, err)
	require.Equal(t, StateFinished, st)

	require.ErrorIs(t, m.SelectOption(0), ErrAlreadyFinished)
	_, err = m.Next()
	require.ErrorIs(t, err, ErrAlreadyFinished)
}
