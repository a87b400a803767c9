package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pawtagapp/pawtag-backend/api/middleware"
	"github.com/pawtagapp/pawtag-backend/internal/auth"
	"github.com/pawtagapp/pawtag-backend/internal/users"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

type stubAuthService struct {
	session   *auth.SessionResponse
	err       error
	loggedOut []string
}

func (s *stubAuthService) Register(_ context.Context, _ auth.RegisterRequest) (*auth.SessionResponse, error) {
	return s.session, s.err
}

func (s *stubAuthService) Login(_ context.Context, _ auth.LoginRequest) (*auth.SessionResponse, error) {
	return s.session, s.err
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.loggedOut = append(s.loggedOut, accessID)
	return s.err
}

func TestRegisterCreated(t *testing.T) {
	svc := &stubAuthService{session: &auth.SessionResponse{
		AccessToken:  "jwt",
		RefreshToken: "refresh",
		User:         &users.UserDTO{ID: uuid.New(), Email: "owner@example.com"},
	}}

	body := bytes.NewBufferString(`{"email":"owner@example.com","password":"correct horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	Register(svc, nil)(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	svc := &stubAuthService{}

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":1}`))
	w := httptest.NewRecorder()
	Register(svc, nil)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLoginUnauthorized(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}

	body := bytes.NewBufferString(`{"email":"owner@example.com","password":"wrong password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	w := httptest.NewRecorder()
	Login(svc, nil)(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Message != "invalid credentials" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestLogoutUsesSessionFromContext(t *testing.T) {
	svc := &stubAuthService{}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(middleware.WithSessionID(req.Context(), "session-9"))
	w := httptest.NewRecorder()
	Logout(svc, nil)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(svc.loggedOut) != 1 || svc.loggedOut[0] != "session-9" {
		t.Fatalf("expected session revocation, got %v", svc.loggedOut)
	}
}
