package types

import (
	"time"

	"github.com/google/uuid"
)

// Message is one chat turn. SenderID is the zero uuid for counselor turns.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index;column:conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;column:sender_id" json:"sender_id"`
	Content        string    `gorm:"not null;column:content" json:"content"`
	CreatedAt      time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Message) TableName() string {
	return "message"
}
