package content

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/pagination"
)

// UpdateRequest is the PATCH surface of the library. Type is immutable and
// deliberately absent.
type UpdateRequest struct {
	Title      *string         `json:"title,omitempty"`
	Body       *string         `json:"body,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	IsFavorite *bool           `json:"is_favorite,omitempty"`
}

type contentRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error)
	Update(ctx context.Context, row *models.Content) (*models.Content, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filters ListFilters, page pagination.Params) (*ListResult, error)
}

// ServiceParams groups dependencies for the content service.
type ServiceParams struct {
	Repo contentRepo
}

// Service owns the saved-content library. Every read and write is scoped to
// the owning user; other users' rows surface as not-found.
type Service struct {
	repo contentRepo
}

// NewService builds a content service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "content repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// Get loads one item, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, contentID uuid.UUID) (*models.Content, error) {
	return s.owned(ctx, userID, contentID)
}

// List pages through the caller's library.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filters ListFilters, page pagination.Params) (*ListResult, error) {
	return s.repo.List(ctx, userID, filters, page)
}

// Update patches mutable fields on an owned item.
func (s *Service) Update(ctx context.Context, userID, contentID uuid.UUID, req UpdateRequest) (*models.Content, error) {
	row, err := s.owned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		row.Title = title
	}
	if req.Body != nil {
		row.Body = *req.Body
	}
	if req.Metadata != nil {
		row.Metadata = req.Metadata
	}
	if req.IsFavorite != nil {
		row.IsFavorite = *req.IsFavorite
	}

	return s.repo.Update(ctx, row)
}

// ToggleFavorite flips the favorite flag on an owned item.
func (s *Service) ToggleFavorite(ctx context.Context, userID, contentID uuid.UUID) (*models.Content, error) {
	row, err := s.owned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	row.IsFavorite = !row.IsFavorite
	return s.repo.Update(ctx, row)
}

// Delete removes an owned item.
func (s *Service) Delete(ctx context.Context, userID, contentID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, contentID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, contentID)
}

func (s *Service) owned(ctx context.Context, userID, contentID uuid.UUID) (*models.Content, error) {
	row, err := s.repo.FindByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
		}
		return nil, err
	}
	if row.UserID != userID {
		// Other users' rows look like they don't exist.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
	}
	return row, nil
}
