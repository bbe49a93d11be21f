package session

import (
	"context"
	"errors"
	"time"

	"nabook/internal/core/examsession"
	"nabook/internal/database"
	"nabook/internal/database/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("sesión no encontrada")

// Repository owns durable Session and WeakPoint state. The client-side cache
// is a projection of this store, not the other way around.
type Repository struct{}

func NewRepository() *Repository { return &Repository{} }

func (r *Repository) Create(ctx context.Context, ownerID, title string) (*model.Session, error) {
	db, err := database.GetDB()
	if err != nil {
		return nil, err
	}
	s := model.Session{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Title:   title,
	}
	if err := db.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID loads a session with its weak points in derivation order.
func (r *Repository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	db, err := database.GetDB()
	if err != nil {
		return nil, err
	}
	var s model.Session
	err = db.WithContext(ctx).
		Preload("WeakPoints", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateNote overwrites title and/or note content. Empty strings are ignored
// for the title; content is written as-is (clearing a note is legitimate).
func (r *Repository) UpdateNote(ctx context.Context, id string, title *string, noteContent *string) (*model.Session, error) {
	db, err := database.GetDB()
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"updated_at": time.Now()}
	if title != nil && *title != "" {
		updates["title"] = *title
	}
	if noteContent != nil {
		updates["note_content"] = *noteContent
	}
	res := db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSessionNotFound
	}
	return r.GetByID(ctx, id)
}

// ReplaceWeakPoints swaps the session's weak-point list for the batch derived
// from the latest finished exam. Delete and insert run in one transaction so
// the stored list always reflects exactly the most recent exam, never a merge.
func (r *Repository) ReplaceWeakPoints(ctx context.Context, sessionID string, points []examsession.WeakPoint) error {
	return database.WithTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Session{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrSessionNotFound
		}

		if err := tx.Where("session_id = ?", sessionID).Delete(&model.WeakPoint{}).Error; err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}

		records := make([]model.WeakPoint, len(points))
		for i, p := range points {
			records[i] = model.WeakPoint{
				ID:                 uuid.NewString(),
				SessionID:          sessionID,
				Position:           i,
				Topic:              p.Topic,
				Description:        p.Description,
				Criticality:        p.Criticality,
				MatchedTextSnippet: p.MatchedTextSnippet,
			}
		}
		return tx.Create(&records).Error
	})
}
