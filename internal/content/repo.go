package content

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	"github.com/contentforge/contentforge-backend/pkg/pagination"
)

// ListFilters describe the supported filter knobs for the library endpoint.
type ListFilters struct {
	Type         *enums.ContentType `json:"type,omitempty"`
	FavoriteOnly bool               `json:"favorite_only,omitempty"`
	Query        string             `json:"q,omitempty"`
}

// ListResult is one page of the user's library.
type ListResult struct {
	Items      []models.Content `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Repository persists saved generation artifacts.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new content row.
func (r *Repository) Create(ctx context.Context, row *models.Content) (*models.Content, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// CreateTx inserts a new content row inside an open transaction.
func (r *Repository) CreateTx(tx *gorm.DB, row *models.Content) (*models.Content, error) {
	if err := tx.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindByID loads one content row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	var row models.Content
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Update saves the mutated content row.
func (r *Repository) Update(ctx context.Context, row *models.Content) (*models.Content, error) {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes a content row by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Content{}).Error
}

// List pages through the user's library, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, filters ListFilters, page pagination.Params) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("user_id = ?", userID)

	if filters.Type != nil {
		qb = qb.Where("type = ?", *filters.Type)
	}
	if filters.FavoriteOnly {
		qb = qb.Where("is_favorite = ?", true)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(title) LIKE ? OR LOWER(prompt) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Content
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{
		Items:      rows,
		NextCursor: nextCursor,
	}, nil
}
