package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
)

type fakeSubscriptionService struct {
	trialUserID uuid.UUID
	trialErr    error
	trialEnd    time.Time
}

func (f *fakeSubscriptionService) StartTrial(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	f.trialUserID = userID
	if f.trialErr != nil {
		return nil, f.trialErr
	}
	return &f.trialEnd, nil
}

func (f *fakeSubscriptionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	return []models.Subscription{{UserID: userID, Tier: enums.TierPro}}, nil
}

func TestTrialStartSuccess(t *testing.T) {
	svc := &fakeSubscriptionService{trialEnd: time.Now().Add(72 * time.Hour).UTC()}
	handler := TrialStart(svc, nil)

	caller := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/trial/start", "", caller)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.trialUserID != caller {
		t.Fatalf("expected trial for caller %s, got %s", caller, svc.trialUserID)
	}
	if !strings.Contains(rec.Body.String(), `"tier":"pro"`) {
		t.Fatalf("expected pro tier in response, got %s", rec.Body.String())
	}
}

func TestTrialStartAlreadyUsed(t *testing.T) {
	svc := &fakeSubscriptionService{trialErr: pkgerrors.New(pkgerrors.CodeStateConflict, "trial already used")}
	handler := TrialStart(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/trial/start", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	meta := pkgerrors.MetadataFor(pkgerrors.CodeStateConflict)
	if rec.Code != meta.HTTPStatus {
		t.Fatalf("expected %d got %d", meta.HTTPStatus, rec.Code)
	}
}

func TestSubscriptionsListScopedToCaller(t *testing.T) {
	handler := SubscriptionsList(&fakeSubscriptionService{}, nil)

	req := authedRequest(http.MethodGet, "/api/v1/subscriptions", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
