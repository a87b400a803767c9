package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawtagapp/pawtag-backend/internal/alerts"
	"github.com/pawtagapp/pawtag-backend/internal/pets"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

func testAbuseConfig() config.AbuseControlConfig {
	return config.AbuseControlConfig{
		Window:          10 * time.Minute,
		CooldownWindow:  60 * time.Second,
		MinFormFillTime: 1500 * time.Millisecond,
	}
}

type stubAlertService struct {
	lastInput alerts.SubmitInput
	result    *alerts.SubmitResultDTO
	err       error
}

func (s *stubAlertService) Submit(_ context.Context, input alerts.SubmitInput) (*alerts.SubmitResultDTO, error) {
	s.lastInput = input
	return s.result, s.err
}

func (s *stubAlertService) ListForOwner(context.Context, uuid.UUID) ([]alerts.AlertDTO, error) {
	return nil, nil
}

func (s *stubAlertService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

type stubPetService struct {
	pets.Service
	profile *pets.PublicPetDTO
	err     error
}

func (s *stubPetService) PublicProfile(context.Context, string) (*pets.PublicPetDTO, error) {
	return s.profile, s.err
}

func foundRouter(svc alerts.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/public/pets/{publicID}/found", SubmitFoundReport(svc, testAbuseConfig(), nil))
	return r
}

func postFound(t *testing.T, handler http.Handler, publicID string, body map[string]any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/public/pets/"+publicID+"/found", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-browser/1.0")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSubmitFoundReportPassesSubmissionMetadata(t *testing.T) {
	svc := &stubAlertService{result: &alerts.SubmitResultDTO{PetName: "Rex"}}
	handler := foundRouter(svc)

	w := postFound(t, handler, "abc123defg", map[string]any{
		"message":      "Found your dog near the park entrance",
		"phone":        "+15551234567",
		"fill_time_ms": 4200,
	}, &http.Cookie{Name: lastAlertCookie, Value: "1700000000"})

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	in := svc.lastInput
	if in.PublicID != "abc123defg" {
		t.Fatalf("unexpected public id %q", in.PublicID)
	}
	if in.Submission.FillTime != 4200*time.Millisecond {
		t.Fatalf("unexpected fill time %v", in.Submission.FillTime)
	}
	if in.Submission.LastAlertAt == nil || in.Submission.LastAlertAt.Unix() != 1700000000 {
		t.Fatalf("cooldown cookie not propagated: %v", in.Submission.LastAlertAt)
	}
	if in.Submission.Fingerprint == "" {
		t.Fatal("expected a computed fingerprint")
	}
	if in.Submission.UserAgent != "test-browser/1.0" {
		t.Fatalf("unexpected user agent %q", in.Submission.UserAgent)
	}
}

func TestSubmitFoundReportSetsCookies(t *testing.T) {
	svc := &stubAlertService{result: &alerts.SubmitResultDTO{PetName: "Rex"}}
	handler := foundRouter(svc)

	w := postFound(t, handler, "abc123defg", map[string]any{
		"message": "Found your dog near the park entrance",
	})

	var sawFinder, sawCooldown bool
	for _, c := range w.Result().Cookies() {
		switch c.Name {
		case finderIDCookie:
			sawFinder = true
			if !c.HttpOnly || c.Value == "" {
				t.Fatal("finder cookie must be http-only and non-empty")
			}
			if !c.Secure {
				t.Fatal("finder cookie must be secure")
			}
		case lastAlertCookie:
			sawCooldown = true
			if c.MaxAge != int(lastAlertCookieTTL.Seconds()) {
				t.Fatalf("unexpected cooldown cookie max-age %d", c.MaxAge)
			}
			if !c.Secure {
				t.Fatal("cooldown cookie must be secure")
			}
		}
	}
	if !sawFinder || !sawCooldown {
		t.Fatalf("expected both cookies, finder=%v cooldown=%v", sawFinder, sawCooldown)
	}
}

func TestSubmitFoundReportReusesFinderCookie(t *testing.T) {
	svc := &stubAlertService{result: &alerts.SubmitResultDTO{PetName: "Rex"}}
	handler := foundRouter(svc)

	w := postFound(t, handler, "abc123defg", map[string]any{
		"message": "Found your dog near the park entrance",
	}, &http.Cookie{Name: finderIDCookie, Value: "finder-123"})

	for _, c := range w.Result().Cookies() {
		if c.Name == finderIDCookie {
			t.Fatal("existing finder cookie must not be reissued")
		}
	}
	if svc.lastInput.Submission.Fingerprint == "" {
		t.Fatal("expected a fingerprint built from the existing cookie")
	}
}

func TestSubmitFoundReportRejectedByEngine(t *testing.T) {
	svc := &stubAlertService{err: pkgerrors.New(pkgerrors.CodeRateLimit, "please wait a moment before sending another alert")}
	handler := foundRouter(svc)

	w := postFound(t, handler, "abc123defg", map[string]any{
		"message": "Found your dog near the park entrance",
	})

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestPublicPetProfileNotFound(t *testing.T) {
	svc := &stubPetService{err: pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")}
	r := chi.NewRouter()
	r.Get("/public/pets/{publicID}", PublicPetProfile(svc, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/pets/zzzzzzzzzz", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
