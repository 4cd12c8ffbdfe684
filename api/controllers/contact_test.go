package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/internal/contact"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
)

type fakeContactService struct {
	submitted    *contact.SubmitMessageRequest
	subscribed   string
	unsubscribed string
	markedRead   uuid.UUID
}

func (f *fakeContactService) SubmitMessage(ctx context.Context, req contact.SubmitMessageRequest) (*models.ContactMessage, error) {
	f.submitted = &req
	return &models.ContactMessage{ID: uuid.New(), Name: req.Name, Email: req.Email, Body: req.Body}, nil
}

func (f *fakeContactService) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	f.subscribed = email
	return &models.NewsletterSubscriber{ID: uuid.New(), Email: email, IsActive: true}, nil
}

func (f *fakeContactService) Unsubscribe(ctx context.Context, email string) error {
	f.unsubscribed = email
	return nil
}

func (f *fakeContactService) ListMessages(ctx context.Context, unreadOnly bool, limit int) ([]models.ContactMessage, error) {
	return []models.ContactMessage{}, nil
}

func (f *fakeContactService) MarkMessageRead(ctx context.Context, id uuid.UUID) error {
	f.markedRead = id
	return nil
}

func (f *fakeContactService) ListSubscribers(ctx context.Context, activeOnly bool, limit int) ([]models.NewsletterSubscriber, error) {
	return []models.NewsletterSubscriber{}, nil
}

func TestContactSubmit(t *testing.T) {
	svc := &fakeContactService{}
	handler := ContactSubmit(svc, nil)

	body := `{"name":"Visitor","email":"v@example.com","subject":"Hi","body":"Question about plans"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.submitted == nil || svc.submitted.Email != "v@example.com" {
		t.Fatalf("expected message submitted, got %+v", svc.submitted)
	}
}

func TestContactSubmitRequiresBody(t *testing.T) {
	handler := ContactSubmit(&fakeContactService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", strings.NewReader(`{"name":"Visitor","email":"v@example.com"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestNewsletterSubscribeAndUnsubscribe(t *testing.T) {
	svc := &fakeContactService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter/subscribe", strings.NewReader(`{"email":"sub@example.com"}`))
	rec := httptest.NewRecorder()
	NewsletterSubscribe(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.subscribed != "sub@example.com" {
		t.Fatalf("expected subscribe call, got %q", svc.subscribed)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter/unsubscribe", strings.NewReader(`{"email":"sub@example.com"}`))
	rec2 := httptest.NewRecorder()
	NewsletterUnsubscribe(svc, nil).ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec2.Code)
	}
	if svc.unsubscribed != "sub@example.com" {
		t.Fatalf("expected unsubscribe call, got %q", svc.unsubscribed)
	}
}
