package types

import (
	"time"

	"github.com/google/uuid"
)

// Post is one reflection, immutable once written except for the identity
// reference: reconciliation moves an anonymous post to a permanent user
// exactly once. UserID and AnonToken are mutually exclusive.
type Post struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index;column:user_id" json:"user_id,omitempty"`
	AnonToken *string    `gorm:"index;column:anon_token" json:"anon_token,omitempty"`
	Nickname  string     `gorm:"not null;column:nickname" json:"nickname"`
	Content   string     `gorm:"not null;column:content" json:"content"`
	// Embedding is the serialized vector (JSON array). Nil when embedding
	// failed; parsed into []float32 at the repo boundary.
	Embedding *string   `gorm:"type:text;column:embedding" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Post) TableName() string {
	return "post"
}
