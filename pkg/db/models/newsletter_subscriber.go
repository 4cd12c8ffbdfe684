package models

import (
	"time"

	"github.com/google/uuid"
)

// NewsletterSubscriber tracks marketing-list membership. Email is unique;
// unsubscribes flip the active flag rather than deleting the row.
type NewsletterSubscriber struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
