package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// Content is a generated artifact the user chose to save. Type is immutable
// after creation; the body may be edited by the owner.
type Content struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Type        enums.ContentType `gorm:"column:type;type:content_type;not null" json:"type"`
	Title       string            `gorm:"column:title;not null" json:"title"`
	Body        string            `gorm:"column:body;type:text;not null" json:"body"`
	Prompt      string            `gorm:"column:prompt;type:text;not null" json:"prompt"`
	ArtifactURL *string           `gorm:"column:artifact_url" json:"artifact_url,omitempty"`
	Metadata    json.RawMessage   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	IsFavorite  bool              `gorm:"column:is_favorite;not null;default:false" json:"is_favorite"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
