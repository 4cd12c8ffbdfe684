package contact

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
)

type stubContactRepo struct {
	messages    []*models.ContactMessage
	subscribers map[string]*models.NewsletterSubscriber
}

func newStubContactRepo() *stubContactRepo {
	return &stubContactRepo{subscribers: map[string]*models.NewsletterSubscriber{}}
}

func (s *stubContactRepo) CreateMessage(ctx context.Context, row *models.ContactMessage) (*models.ContactMessage, error) {
	s.messages = append(s.messages, row)
	return row, nil
}

func (s *stubContactRepo) ListMessages(ctx context.Context, unreadOnly bool, limit int) ([]models.ContactMessage, error) {
	out := make([]models.ContactMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if unreadOnly && m.IsRead {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *stubContactRepo) MarkMessageRead(ctx context.Context, id uuid.UUID) error {
	for _, m := range s.messages {
		if m.ID == id {
			m.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubContactRepo) UpsertSubscriber(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	if existing, ok := s.subscribers[email]; ok {
		existing.IsActive = true
		return existing, nil
	}
	sub := &models.NewsletterSubscriber{ID: uuid.New(), Email: email, IsActive: true}
	s.subscribers[email] = sub
	return sub, nil
}

func (s *stubContactRepo) DeactivateSubscriber(ctx context.Context, email string) error {
	if existing, ok := s.subscribers[email]; ok {
		existing.IsActive = false
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (s *stubContactRepo) ListSubscribers(ctx context.Context, activeOnly bool, limit int) ([]models.NewsletterSubscriber, error) {
	out := make([]models.NewsletterSubscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if activeOnly && !sub.IsActive {
			continue
		}
		out = append(out, *sub)
	}
	return out, nil
}

func TestSubmitMessageNormalizesInput(t *testing.T) {
	repo := newStubContactRepo()
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	msg, err := svc.SubmitMessage(context.Background(), SubmitMessageRequest{
		Name:  "  Ada  ",
		Email: "  ADA@Example.com ",
		Body:  "  How do I upgrade?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", msg.Name)
	assert.Equal(t, "ada@example.com", msg.Email)
	assert.Equal(t, "How do I upgrade?", msg.Body)
}

func TestSubmitMessageRejectsBadEmail(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: newStubContactRepo()})
	require.NoError(t, err)

	_, err = svc.SubmitMessage(context.Background(), SubmitMessageRequest{
		Name:  "Ada",
		Email: "not-an-email",
		Body:  "hello",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestSubscribeLowercasesEmail(t *testing.T) {
	repo := newStubContactRepo()
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)

	sub, err := svc.Subscribe(context.Background(), "Reader@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", sub.Email)
	assert.True(t, sub.IsActive)
}

func TestUnsubscribeUnknownEmailIsSilent(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: newStubContactRepo()})
	require.NoError(t, err)

	assert.NoError(t, svc.Unsubscribe(context.Background(), "ghost@example.com"))
}
