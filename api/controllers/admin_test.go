package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/internal/admin"
	"github.com/contentforge/contentforge-backend/internal/risk"
	"github.com/contentforge/contentforge-backend/internal/users"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
)

type fakeAdminService struct {
	executed       []admin.Command
	executeErr     error
	listFilter     users.ListFilter
	listLimit      int
	listOffset     int
	user           *models.User
	clusterGroupBy string
	clusterWindow  time.Duration
}

func (f *fakeAdminService) Execute(ctx context.Context, cmd admin.Command) error {
	f.executed = append(f.executed, cmd)
	return f.executeErr
}

func (f *fakeAdminService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return f.user, nil
}

func (f *fakeAdminService) ListUsers(ctx context.Context, filter users.ListFilter, limit, offset int) ([]models.User, int64, error) {
	f.listFilter = filter
	f.listLimit = limit
	f.listOffset = offset
	rows := []models.User{}
	if f.user != nil {
		rows = append(rows, *f.user)
	}
	return rows, int64(len(rows)), nil
}

func (f *fakeAdminService) ListAuditLogs(ctx context.Context, targetUserID *uuid.UUID, limit int) ([]models.AdminAuditLog, error) {
	return []models.AdminAuditLog{}, nil
}

func (f *fakeAdminService) ListSuspiciousActivities(ctx context.Context, userID *uuid.UUID, limit int) ([]models.SuspiciousActivity, error) {
	return []models.SuspiciousActivity{}, nil
}

func (f *fakeAdminService) ClusterSuspiciousActivities(ctx context.Context, groupBy string, window time.Duration, limit int) ([]risk.ActivityCluster, error) {
	f.clusterGroupBy = groupBy
	f.clusterWindow = window
	if groupBy != "ip" && groupBy != "fingerprint" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group_by must be ip or fingerprint")
	}
	return []risk.ActivityCluster{{Value: "203.0.113.9", Events: 4, Users: 3, MaxRiskScore: 70}}, nil
}

func adminRouter(svc AdminService) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/admin/v1/users", AdminListUsers(svc, nil))
	r.Get("/api/admin/v1/users/{userId}", AdminGetUser(svc, nil))
	r.Post("/api/admin/v1/users/{userId}/actions", AdminUserAction(svc, nil))
	r.Get("/api/admin/v1/security/suspicious", AdminSuspiciousActivities(svc, nil))
	r.Get("/api/admin/v1/audit", AdminAuditLogs(svc, nil))
	return r
}

func TestAdminUserActionBuildsCommand(t *testing.T) {
	svc := &fakeAdminService{}
	router := adminRouter(svc)
	actorID := uuid.New()
	targetID := uuid.New()

	body := `{"action":"block","reason":"chargeback abuse"}`
	req := authedRequest(http.MethodPost, "/api/admin/v1/users/"+targetID.String()+"/actions", body, actorID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.executed) != 1 {
		t.Fatalf("expected one command, got %d", len(svc.executed))
	}
	cmd := svc.executed[0]
	if cmd.ActorUserID != actorID || cmd.TargetUserID != targetID {
		t.Fatalf("unexpected command identities: %+v", cmd)
	}
	if cmd.Action != enums.AdminActionBlock {
		t.Fatalf("expected block action, got %s", cmd.Action)
	}
	if cmd.Reason != "chargeback abuse" {
		t.Fatalf("expected reason passed through, got %q", cmd.Reason)
	}
}

func TestAdminUserActionPropagatesStateConflict(t *testing.T) {
	svc := &fakeAdminService{executeErr: pkgerrors.New(pkgerrors.CodeStateConflict, "user already blocked")}
	router := adminRouter(svc)

	body := `{"action":"block","reason":"dup"}`
	req := authedRequest(http.MethodPost, "/api/admin/v1/users/"+uuid.NewString()+"/actions", body, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	meta := pkgerrors.MetadataFor(pkgerrors.CodeStateConflict)
	if rec.Code != meta.HTTPStatus {
		t.Fatalf("expected %d got %d", meta.HTTPStatus, rec.Code)
	}
}

func TestAdminListUsersParsesFilters(t *testing.T) {
	svc := &fakeAdminService{user: &models.User{ID: uuid.New(), Email: "flagged@example.com", IsFlagged: true}}
	router := adminRouter(svc)

	req := authedRequest(http.MethodGet, "/api/admin/v1/users?flagged_only=true&limit=5&offset=10", "", uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if !svc.listFilter.FlaggedOnly {
		t.Fatal("expected flagged_only filter")
	}
	if svc.listLimit != 5 || svc.listOffset != 10 {
		t.Fatalf("expected limit 5 offset 10, got %d/%d", svc.listLimit, svc.listOffset)
	}

	var envelope struct {
		Data struct {
			Items []json.RawMessage `json:"items"`
			Total int64             `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Total != 1 || len(envelope.Data.Items) != 1 {
		t.Fatalf("expected one user, got %+v", envelope.Data)
	}
}

func TestAdminGetUserUnknownID(t *testing.T) {
	router := adminRouter(&fakeAdminService{})

	req := authedRequest(http.MethodGet, "/api/admin/v1/users/"+uuid.NewString(), "", uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestAdminSuspiciousGroupByClusters(t *testing.T) {
	svc := &fakeAdminService{}
	router := adminRouter(svc)

	req := authedRequest(http.MethodGet, "/api/admin/v1/security/suspicious?group_by=ip&window_hours=24", "", uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.clusterGroupBy != "ip" {
		t.Fatalf("expected ip grouping, got %q", svc.clusterGroupBy)
	}
	if svc.clusterWindow != 24*time.Hour {
		t.Fatalf("expected 24h window, got %v", svc.clusterWindow)
	}

	var envelope struct {
		Data struct {
			GroupBy  string                 `json:"group_by"`
			Clusters []risk.ActivityCluster `json:"clusters"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.GroupBy != "ip" || len(envelope.Data.Clusters) != 1 {
		t.Fatalf("unexpected cluster payload %+v", envelope.Data)
	}
}

func TestAdminSuspiciousGroupByRejectsUnknownDimension(t *testing.T) {
	router := adminRouter(&fakeAdminService{})

	req := authedRequest(http.MethodGet, "/api/admin/v1/security/suspicious?group_by=email", "", uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminSuspiciousRejectsBadUserFilter(t *testing.T) {
	router := adminRouter(&fakeAdminService{})

	req := authedRequest(http.MethodGet, "/api/admin/v1/security/suspicious?user_id=nope", "", uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
