package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthRefreshSuccess(t *testing.T) {
	handler := AuthRefresh(&fakeAuthService{}, nil)

	body := `{"access_token":"expired","refresh_token":"refresh"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "new-access") {
		t.Fatalf("expected rotated tokens in response, got %s", rec.Body.String())
	}
}

func TestAuthRefreshRequiresBothTokens(t *testing.T) {
	handler := AuthRefresh(&fakeAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"access_token":"only"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthLogoutRequiresToken(t *testing.T) {
	handler := AuthLogout(&fakeAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthLogoutRevokesBearerToken(t *testing.T) {
	svc := &fakeAuthService{}
	handler := AuthLogout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.logoutTok != "the-token" {
		t.Fatalf("expected raw token passed through, got %q", svc.logoutTok)
	}
}
