package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/enums"
)

// AdminAuditLog records every back-office mutation: who did what to whom,
// with the old and new values in the detail payload.
type AdminAuditLog struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorUserID  uuid.UUID         `gorm:"column:actor_user_id;type:uuid;not null;index" json:"actor_user_id"`
	TargetUserID uuid.UUID         `gorm:"column:target_user_id;type:uuid;not null;index" json:"target_user_id"`
	Action       enums.AdminAction `gorm:"column:action;type:admin_action;not null" json:"action"`
	Detail       json.RawMessage   `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	Succeeded    bool              `gorm:"column:succeeded;not null;default:true" json:"succeeded"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
