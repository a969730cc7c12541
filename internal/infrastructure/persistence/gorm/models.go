// Package gorm provides GORM-based persistence models and repositories
package gorm

import (
	"time"

	"github.com/google/uuid"
)

// ConversationModel is the GORM model for conversations
type ConversationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Title     string    `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []MessageModel `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for conversations
func (ConversationModel) TableName() string {
	return "conversations"
}

// MessageModel is the GORM model for messages. Annotations are stored as
// serialized JSON because they are written once and read back whole.
type MessageModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;index;not null"`
	Role           string    `gorm:"size:16;not null"`
	Content        string    `gorm:"type:text;not null"`
	Corrections    *string   `gorm:"type:text"`
	Optimization   *string   `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"index"`
}

// TableName returns the table name for messages
func (MessageModel) TableName() string {
	return "messages"
}
