package content

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/pagination"
)

type stubContentRepo struct {
	rows    map[uuid.UUID]*models.Content
	updated *models.Content
	deleted []uuid.UUID
}

func newStubContentRepo(rows ...*models.Content) *stubContentRepo {
	repo := &stubContentRepo{rows: map[uuid.UUID]*models.Content{}}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	return repo
}

func (s *stubContentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *stubContentRepo) Update(ctx context.Context, row *models.Content) (*models.Content, error) {
	s.rows[row.ID] = row
	s.updated = row
	return row, nil
}

func (s *stubContentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.rows, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubContentRepo) List(ctx context.Context, userID uuid.UUID, filters ListFilters, page pagination.Params) (*ListResult, error) {
	return &ListResult{}, nil
}

func ownedRow(userID uuid.UUID) *models.Content {
	return &models.Content{
		ID:     uuid.New(),
		UserID: userID,
		Type:   enums.ContentTypeBlogPost,
		Title:  "Original title",
		Body:   "original body",
		Prompt: "prompt",
	}
}

func TestUpdatePatchesMutableFields(t *testing.T) {
	userID := uuid.New()
	row := ownedRow(userID)
	repo := newStubContentRepo(row)
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	title := "  New title  "
	body := "new body"
	favorite := true
	updated, err := svc.Update(context.Background(), userID, row.ID, UpdateRequest{
		Title:      &title,
		Body:       &body,
		IsFavorite: &favorite,
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "new body", updated.Body)
	assert.True(t, updated.IsFavorite)
	// Type survives every patch.
	assert.Equal(t, enums.ContentTypeBlogPost, updated.Type)
}

func TestUpdateRejectsEmptyTitle(t *testing.T) {
	userID := uuid.New()
	row := ownedRow(userID)
	svc, err := NewService(ServiceParams{Repo: newStubContentRepo(row)})
	require.NoError(t, err)

	empty := "   "
	_, err = svc.Update(context.Background(), userID, row.ID, UpdateRequest{Title: &empty})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestOwnershipHidesOtherUsersRows(t *testing.T) {
	owner := uuid.New()
	row := ownedRow(owner)
	repo := newStubContentRepo(row)
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	intruder := uuid.New()
	_, err = svc.Get(context.Background(), intruder, row.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	err = svc.Delete(context.Background(), intruder, row.ID)
	require.Error(t, err)
	assert.Empty(t, repo.deleted)
}

func TestToggleFavorite(t *testing.T) {
	userID := uuid.New()
	row := ownedRow(userID)
	repo := newStubContentRepo(row)
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	first, err := svc.ToggleFavorite(context.Background(), userID, row.ID)
	require.NoError(t, err)
	assert.True(t, first.IsFavorite)

	second, err := svc.ToggleFavorite(context.Background(), userID, row.ID)
	require.NoError(t, err)
	assert.False(t, second.IsFavorite)
}

func TestDeleteOwnedRow(t *testing.T) {
	userID := uuid.New()
	row := ownedRow(userID)
	repo := newStubContentRepo(row)
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, row.ID))
	assert.Equal(t, []uuid.UUID{row.ID}, repo.deleted)
}
