package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nabook/config"
	coreexam "nabook/internal/core/exam"
	"nabook/internal/core/examsession"
	"nabook/internal/database/model"
	sessionsvc "nabook/internal/services/session"
	"nabook/pkg/apperror"
	"nabook/pkg/apperror/status"
	"nabook/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// Generator runs the exam pipeline when an attempt starts.
type Generator interface {
	Generate(ctx context.Context, req coreexam.Request) (coreexam.Exam, error)
}

type Handler struct {
	repo     *sessionsvc.Repository
	attempts *sessionsvc.AttemptRegistry
	exams    Generator
}

func NewHandler(repo *sessionsvc.Repository, attempts *sessionsvc.AttemptRegistry, exams Generator) *Handler {
	return &Handler{repo: repo, attempts: attempts, exams: exams}
}

type sessionView struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Title       string          `json:"title"`
	NoteContent string          `json:"noteContent"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	WeakPoints  []weakPointView `json:"weakPoints"`
}

type weakPointView struct {
	ID                 string `json:"id"`
	Topic              string `json:"topic"`
	Description        string `json:"description"`
	Criticality        string `json:"criticality"`
	MatchedTextSnippet string `json:"matchedTextSnippet"`
}

func toView(s *model.Session) sessionView {
	points := make([]weakPointView, 0, len(s.WeakPoints))
	for _, p := range s.WeakPoints {
		points = append(points, weakPointView{
			ID:                 p.ID,
			Topic:              p.Topic,
			Description:        p.Description,
			Criticality:        p.Criticality,
			MatchedTextSnippet: p.MatchedTextSnippet,
		})
	}
	return sessionView{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		NoteContent: s.NoteContent,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		WeakPoints:  points,
	}
}

type createSessionRequest struct {
	OwnerID string `json:"ownerId"`
	Title   string `json:"title"`
}

func (h *Handler) HandleCreate(c fiber.Ctx) error {
	var req createSessionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleSession, c, status.SessionInvalidRequestBody, err.Error())
	}
	if req.OwnerID == "" {
		return apperror.BadRequest(config.ModuleSession, c, status.SessionInvalidRequestBody, "el campo 'ownerId' es obligatorio")
	}
	if req.Title == "" {
		req.Title = "Sin Título"
	}
	s, err := h.repo.Create(context.Background(), req.OwnerID, req.Title)
	if err != nil {
		return apperror.InternalError(config.ModuleSession, c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toView(s))
}

func (h *Handler) HandleGet(c fiber.Ctx) error {
	s, err := h.repo.GetByID(context.Background(), c.Params("id"))
	if errors.Is(err, sessionsvc.ErrSessionNotFound) {
		return apperror.NotFound(config.ModuleSession, c, status.SessionNotFound, err.Error())
	}
	if err != nil {
		return apperror.InternalError(config.ModuleSession, c, err)
	}
	return c.JSON(toView(s))
}

type updateSessionRequest struct {
	Title       *string `json:"title"`
	NoteContent *string `json:"noteContent"`
}

func (h *Handler) HandleUpdate(c fiber.Ctx) error {
	var req updateSessionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleSession, c, status.SessionInvalidRequestBody, err.Error())
	}
	s, err := h.repo.UpdateNote(context.Background(), c.Params("id"), req.Title, req.NoteContent)
	if errors.Is(err, sessionsvc.ErrSessionNotFound) {
		return apperror.NotFound(config.ModuleSession, c, status.SessionNotFound, err.Error())
	}
	if err != nil {
		return apperror.InternalError(config.ModuleSession, c, err)
	}
	return c.JSON(toView(s))
}

type startAttemptRequest struct {
	Topic string `json:"topic"`
}

type attemptView struct {
	AttemptID     string            `json:"attemptId"`
	SessionID     string            `json:"sessionId"`
	State         examsession.State `json:"state"`
	QuestionIndex int               `json:"questionIndex"`
	Exam          coreexam.Exam     `json:"exam"`
}

// HandleStartAttempt ingests the session's current note inline (the canonical
// pipeline variant), generates an exam and opens an attempt on it.
func (h *Handler) HandleStartAttempt(c fiber.Ctx) error {
	s, err := h.repo.GetByID(context.Background(), c.Params("id"))
	if errors.Is(err, sessionsvc.ErrSessionNotFound) {
		return apperror.NotFound(config.ModuleSession, c, status.SessionNotFound, err.Error())
	}
	if err != nil {
		return apperror.InternalError(config.ModuleSession, c, err)
	}

	var req startAttemptRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return apperror.BadRequest(config.ModuleSession, c, status.SessionInvalidRequestBody, err.Error())
		}
	}
	topic := req.Topic
	if topic == "" {
		topic = s.Title
	}
	if topic == "" {
		topic = "Conceptos Generales"
	}

	generated, err := h.exams.Generate(context.Background(), coreexam.Request{
		ID:      s.ID,
		Topic:   topic,
		Content: s.NoteContent,
	})
	switch {
	case errors.Is(err, coreexam.ErrTopicRequired):
		return apperror.BadRequest(config.ModuleSession, c, status.ExamTopicRequired, err.Error())
	case errors.Is(err, coreexam.ErrEmptyIndex):
		return apperror.NotFound(config.ModuleSession, c, status.ExamEmptyIndex, err.Error())
	case err != nil:
		return apperror.InternalError(config.ModuleSession, c, err)
	}

	attempt, err := h.attempts.Start(s.ID, generated)
	if err != nil {
		return apperror.InternalError(config.ModuleSession, c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(attemptView{
		AttemptID:     attempt.ID,
		SessionID:     attempt.SessionID,
		State:         attempt.Machine.State(),
		QuestionIndex: 0,
		Exam:          attempt.Exam,
	})
}

type answerRequest struct {
	OptionIndex int `json:"optionIndex"`
}

type progressView struct {
	State         examsession.State       `json:"state"`
	QuestionIndex int                     `json:"questionIndex"`
	WeakPoints    []examsession.WeakPoint `json:"weakPoints,omitempty"`
}

// HandleAnswer records (or overwrites) the selection for the current question.
func (h *Handler) HandleAnswer(c fiber.Ctx) error {
	attempt, err := h.attempts.Get(c.Params("id"))
	if err != nil {
		return apperror.NotFound(config.ModuleSession, c, status.AttemptNotFound, err.Error())
	}

	var req answerRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleSession, c, status.SessionInvalidRequestBody, err.Error())
	}
	if err := attempt.Machine.SelectOption(req.OptionIndex); err != nil {
		return apperror.BadRequest(config.ModuleSession, c, status.AttemptInvalidSelection, err.Error())
	}

	_, idx := attempt.Machine.Current()
	return c.JSON(progressView{State: attempt.Machine.State(), QuestionIndex: idx})
}

// HandleNext advances the attempt. Finishing derives the weak points and
// persists them, replacing the session's previous list wholesale.
func (h *Handler) HandleNext(c fiber.Ctx) error {
	attempt, err := h.attempts.Get(c.Params("id"))
	if err != nil {
		return apperror.NotFound(config.ModuleSession, c, status.AttemptNotFound, err.Error())
	}

	state, err := attempt.Machine.Next()
	if errors.Is(err, examsession.ErrSelectionRequired) {
		return apperror.BadRequest(config.ModuleSession, c, status.AttemptSelectionRequired, err.Error())
	}
	if err != nil {
		return apperror.InternalError(config.ModuleSession, c, err)
	}

	if state != examsession.StateFinished {
		_, idx := attempt.Machine.Current()
		return c.JSON(progressView{State: state, QuestionIndex: idx})
	}

	points := attempt.Machine.WeakPoints()
	if err := h.repo.ReplaceWeakPoints(context.Background(), attempt.SessionID, points); err != nil {
		logger.Error(err, "%v: persisting weak points failed", config.ModuleSession)
		return apperror.InternalError(config.ModuleSession, c, err)
	}
	h.attempts.Remove(attempt.ID)

	return c.JSON(progressView{State: state, QuestionIndex: len(attempt.Exam.Questions) - 1, WeakPoints: points})
}

// HandleAbandon discards an attempt. Abandoning in-progress work requires
// confirm=true so progress is never lost silently.
func (h *Handler) HandleAbandon(c fiber.Ctx) error {
	confirmed := c.Query("confirm") == "true" || c.Query("confirm") == "1"
	err := h.attempts.Abandon(c.Params("id"), confirmed)
	if errors.Is(err, sessionsvc.ErrAttemptNotFound) {
		return apperror.NotFound(config.ModuleSession, c, status.AttemptNotFound, err.Error())
	}
	if errors.Is(err, sessionsvc.ErrAttemptInProgress) {
		return apperror.Conflict(config.ModuleSession, c, status.AttemptInProgress, err.Error())
	}
	if err != nil {
		return apperror.InternalError(config.ModuleSession, c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
