package session

import (
	"errors"
	"sync"
	"time"

	"nabook/internal/core/exam"
	"nabook/internal/core/examsession"

	"github.com/google/uuid"
)

var (
	ErrAttemptNotFound = errors.New("intento de examen no encontrado")
	// ErrAttemptInProgress guards against silent progress loss: abandoning an
	// unfinished attempt requires explicit confirmation.
	ErrAttemptInProgress = errors.New("el examen está en curso; confirma para descartar el progreso")
)

// Attempt is one in-flight exam run for a session.
type Attempt struct {
	ID        string
	SessionID string
	Exam      exam.Exam
	Machine   *examsession.Machine
	StartedAt time.Time
}

// AttemptRegistry holds in-progress attempts in memory. Attempts are transient
// on purpose: only the derived weak points are durable.
type AttemptRegistry struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{attempts: make(map[string]*Attempt)}
}

func (r *AttemptRegistry) Start(sessionID string, e exam.Exam) (*Attempt, error) {
	machine, err := examsession.NewMachine(e)
	if err != nil {
		return nil, err
	}
	a := &Attempt{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Exam:      e,
		Machine:   machine,
		StartedAt: time.Now(),
	}
	r.mu.Lock()
	r.attempts[a.ID] = a
	r.mu.Unlock()
	return a, nil
}

func (r *AttemptRegistry) Get(id string) (*Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// Remove drops the attempt once finished or abandoned.
func (r *AttemptRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.attempts, id)
	r.mu.Unlock()
}

// Abandon discards an attempt. An in-progress attempt is only discarded when
// the caller confirmed; confirming never persists partial results.
func (r *AttemptRegistry) Abandon(id string, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return ErrAttemptNotFound
	}
	if a.Machine.State() != examsession.StateFinished && !confirmed {
		return ErrAttemptInProgress
	}
	delete(r.attempts, id)
	return nil
}
