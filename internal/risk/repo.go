package risk

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
)

// Repository runs the velocity queries behind the signup risk signals and
// appends to the suspicious activity log.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a risk repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CountAccountsWithFingerprint counts distinct other accounts created with
// the same device fingerprint since the cutoff.
func (r *Repository) CountAccountsWithFingerprint(tx *gorm.DB, fingerprint string, excludeUserID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := tx.Model(&models.User{}).
		Where("device_fingerprint = ? AND id <> ? AND created_at >= ?", fingerprint, excludeUserID, since).
		Count(&count).Error
	return count, err
}

// CountSignupsFromIP counts accounts created from the IP since the cutoff,
// including the one being evaluated.
func (r *Repository) CountSignupsFromIP(tx *gorm.DB, ip string, since time.Time) (int64, error) {
	var count int64
	err := tx.Model(&models.User{}).
		Where("signup_ip = ? AND created_at >= ?", ip, since).
		Count(&count).Error
	return count, err
}

// InsertActivity appends one row to the suspicious activity log.
func (r *Repository) InsertActivity(tx *gorm.DB, activity models.SuspiciousActivity) error {
	return tx.Create(&activity).Error
}

// ListActivities returns the newest log rows for the admin security view.
func (r *Repository) ListActivities(tx *gorm.DB, userID *uuid.UUID, limit int) ([]models.SuspiciousActivity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := tx.Model(&models.SuspiciousActivity{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var rows []models.SuspiciousActivity
	err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// ActivityCluster is one aggregated group of log rows sharing an IP or a
// device fingerprint, ordered so the noisiest sources surface first.
type ActivityCluster struct {
	Value        string    `gorm:"column:value" json:"value"`
	Events       int64     `gorm:"column:events" json:"events"`
	Users        int64     `gorm:"column:users" json:"users"`
	MaxRiskScore int       `gorm:"column:max_risk_score" json:"max_risk_score"`
	LastSeen     time.Time `gorm:"column:last_seen" json:"last_seen"`
}

// clusterColumns are the dimensions AggregateActivities accepts. The column
// name is interpolated into the query, so it must come from this set.
var clusterColumns = map[string]bool{
	"ip":          true,
	"fingerprint": true,
}

// AggregateActivities groups log rows since the cutoff by the given column so
// an operator can spot one IP or device driving many signups.
func (r *Repository) AggregateActivities(tx *gorm.DB, column string, since time.Time, limit int) ([]ActivityCluster, error) {
	if !clusterColumns[column] {
		return nil, errors.New("unsupported cluster column: " + column)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []ActivityCluster
	err := tx.Model(&models.SuspiciousActivity{}).
		Select(column+" AS value, COUNT(*) AS events, COUNT(DISTINCT user_id) AS users, MAX(risk_score) AS max_risk_score, MAX(created_at) AS last_seen").
		Where(column+" <> '' AND created_at >= ?", since).
		Group(column).
		Order("events DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
