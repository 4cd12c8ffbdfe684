package admin

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
)

// Repository persists the back-office audit trail.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an admin repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertAuditLogTx appends an audit row inside the command transaction.
func (r *Repository) InsertAuditLogTx(tx *gorm.DB, entry models.AdminAuditLog) error {
	return tx.Create(&entry).Error
}

// InsertAuditLog appends an audit row outside any transaction. Used to record
// failed commands after their transaction rolled back.
func (r *Repository) InsertAuditLog(ctx context.Context, entry models.AdminAuditLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// ListAuditLogs returns the newest audit rows, optionally scoped to a target.
func (r *Repository) ListAuditLogs(ctx context.Context, targetUserID *uuid.UUID, limit int) ([]models.AdminAuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&models.AdminAuditLog{})
	if targetUserID != nil {
		query = query.Where("target_user_id = ?", *targetUserID)
	}
	var rows []models.AdminAuditLog
	err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
