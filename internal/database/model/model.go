package model

import "time"

// Session is one study-notes document owned by a user. It is mutated on every
// note edit and on exam completion; it is never deleted in the normal flow.
type Session struct {
	ID          string `gorm:"primaryKey;size:36"`
	OwnerID     string `gorm:"size:64;index"`
	Title       string `gorm:"size:255"`
	NoteContent string `gorm:"type:longtext"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	WeakPoints []WeakPoint `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// WeakPoint records a topic the user answered incorrectly on the most recent
// exam. Rows are immutable; a new exam replaces the whole batch. Position
// preserves derivation order.
type WeakPoint struct {
	ID                 string `gorm:"primaryKey;size:36"`
	SessionID          string `gorm:"size:36;index"`
	Position           int
	Topic              string `gorm:"size:255"`
	Description        string `gorm:"type:text"`
	Criticality        string `gorm:"size:16"`
	MatchedTextSnippet string `gorm:"type:text"`
	CreatedAt          time.Time
}
