package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/internal/users"
	pkgAuth "github.com/pawtagapp/pawtag-backend/pkg/auth"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, exists := s.byEmail[dto.Email]; exists {
		return nil, errors.New(`duplicate key value violates unique constraint "idx_users_email"`)
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[dto.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "pawtag", ExpirationMinutes: 30}
}

func buildService(t *testing.T) (Service, *stubUserRepo, *stubSessionManager) {
	t.Helper()
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, sessions
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, sessions := buildService(t)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Owner@Example.COM ",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "owner@example.com" {
		t.Fatalf("expected lowered email, got %q", resp.User.Email)
	}
	if resp.RefreshToken == "" || len(sessions.generated) != 1 {
		t.Fatal("expected a server-side session")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("token user %s does not match %s", claims.UserID, resp.User.ID)
	}

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "owner@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatal("login returned a different user")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := buildService(t)

	req := RegisterRequest{Email: "owner@example.com", Password: "correct horse battery"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), req)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _, _ := buildService(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "owner@example.com", Password: "short"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, _ := buildService(t)

	hash, err := security.HashPassword("right password", config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.byEmail["owner@example.com"] = &models.User{
		ID: uuid.New(), Email: "owner@example.com", PasswordHash: hash, IsActive: true,
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "owner@example.com", Password: "wrong"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	// Unknown account yields the same message as a bad password.
	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	appErr2 := pkgerrors.As(err)
	if appErr2 == nil || appErr2.Code() != pkgerrors.CodeUnauthorized || appErr2.Message() != appErr.Message() {
		t.Fatalf("expected indistinguishable unauthorized, got %v", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	svc, repo, _ := buildService(t)

	hash, _ := security.HashPassword("right password", config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	repo.byEmail["gone@example.com"] = &models.User{
		ID: uuid.New(), Email: "gone@example.com", PasswordHash: hash, IsActive: false,
	}

	_, err := svc.Login(context.Background(), LoginRequest{Email: "gone@example.com", Password: "right password"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := buildService(t)

	if err := svc.Logout(context.Background(), "access-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-1" {
		t.Fatalf("expected revocation, got %v", sessions.revoked)
	}

	err := svc.Logout(context.Background(), "")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty session, got %v", err)
	}
}
