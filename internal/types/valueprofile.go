package types

import (
	"time"

	"github.com/google/uuid"
)

// ValueProfile is the materialized representative profile per permanent
// identity. Embedding is always unit-normalized serialized form, or nil.
type ValueProfile struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	Nickname  string    `gorm:"not null;column:nickname" json:"nickname"`
	Content   string    `gorm:"not null;column:content" json:"content"`
	Embedding *string   `gorm:"type:text;column:embedding" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ValueProfile) TableName() string {
	return "value_profile"
}
