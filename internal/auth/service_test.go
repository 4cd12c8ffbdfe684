package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/contentforge/contentforge-backend/pkg/auth"
	"github.com/contentforge/contentforge-backend/pkg/auth/session"
	"github.com/contentforge/contentforge-backend/pkg/config"
	pkgmodels "github.com/contentforge/contentforge-backend/pkg/db/models"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/security"
)

type stubLoginUserRepo struct {
	user      *pkgmodels.User
	lastLogin *time.Time
	lastIP    string
}

func (s *stubLoginUserRepo) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubLoginUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time, ip string) error {
	s.lastLogin = &at
	s.lastIP = ip
	return nil
}

type stubSessionManager struct {
	generated []string
	rotateErr error
	revoked   []string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-token", nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return session.NewAccessID(), "rotated-token", nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "contentforge-test",
		ExpirationMinutes: 15,
	}
}

func newLoginUser(t *testing.T, email, password string) *pkgmodels.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &pkgmodels.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
	}
}

func newAuthService(t *testing.T, repo *stubLoginUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginIssuesTokenPair(t *testing.T) {
	user := newLoginUser(t, "user@example.com", "Secret123!")
	repo := &stubLoginUserRepo{user: user}
	sessions := &stubSessionManager{}
	svc := newAuthService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "User@Example.com",
		Password: "Secret123!",
	}, "198.51.100.7")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected token pair")
	}
	if repo.lastLogin == nil || repo.lastIP != "198.51.100.7" {
		t.Fatalf("expected last login recorded with client ip")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("token user mismatch")
	}
	if claims.Role != "member" {
		t.Fatalf("expected member role, got %s", claims.Role)
	}
	if len(sessions.generated) != 1 || sessions.generated[0] != claims.ID {
		t.Fatalf("refresh session must be keyed by the token jti")
	}
}

func TestLoginAdminRole(t *testing.T) {
	user := newLoginUser(t, "admin@example.com", "Secret123!")
	user.IsAdmin = true
	svc := newAuthService(t, &stubLoginUserRepo{user: user}, &stubSessionManager{})

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "admin@example.com",
		Password: "Secret123!",
	}, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Role != "admin" {
		t.Fatalf("expected admin role, got %s", claims.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	user := newLoginUser(t, "user@example.com", "Secret123!")
	svc := newAuthService(t, &stubLoginUserRepo{user: user}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	}, "")
	if err == nil {
		t.Fatalf("expected unauthorized")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized code, got %v", err)
	}
}

func TestLoginBlockedUser(t *testing.T) {
	user := newLoginUser(t, "blocked@example.com", "Secret123!")
	user.IsBlocked = true
	svc := newAuthService(t, &stubLoginUserRepo{user: user}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "blocked@example.com",
		Password: "Secret123!",
	}, "")
	if err == nil {
		t.Fatalf("expected blocked")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeBlocked {
		t.Fatalf("expected blocked code, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	user := newLoginUser(t, "user@example.com", "Secret123!")
	repo := &stubLoginUserRepo{user: user}
	sessions := &stubSessionManager{}
	svc := newAuthService(t, repo, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "Secret123!",
	}, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken != "rotated-token" {
		t.Fatalf("expected rotated pair")
	}
}

func TestRefreshInvalidSession(t *testing.T) {
	user := newLoginUser(t, "user@example.com", "Secret123!")
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	svc := newAuthService(t, &stubLoginUserRepo{user: user}, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "Secret123!",
	}, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "stolen",
	})
	if err == nil {
		t.Fatalf("expected unauthorized")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized code, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	user := newLoginUser(t, "user@example.com", "Secret123!")
	sessions := &stubSessionManager{}
	svc := newAuthService(t, &stubLoginUserRepo{user: user}, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "Secret123!",
	}, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.Logout(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(sessions.revoked) != 1 {
		t.Fatalf("expected one revocation")
	}
}
