package types

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a private room between two identities. UserAID is always
// the lexicographically smaller uuid so a pair maps to exactly one row.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserAID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair;column:user_a_id" json:"user_a_id"`
	UserBID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair;column:user_b_id" json:"user_b_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Conversation) TableName() string {
	return "conversation"
}
