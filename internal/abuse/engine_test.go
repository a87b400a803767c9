package abuse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pawtagapp/pawtag-backend/pkg/config"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

type stubStore struct {
	recentCount int64
	duplicate   bool
	countErr    error
	dupErr      error

	lastDupPhone   string
	lastDupMessage string
}

func (s *stubStore) CountRecentByPublicID(context.Context, string, time.Time) (int64, error) {
	return s.recentCount, s.countErr
}

func (s *stubStore) HasRecentDuplicate(_ context.Context, _, _, message, phone string, _ time.Time) (bool, error) {
	s.lastDupMessage = message
	s.lastDupPhone = phone
	return s.duplicate, s.dupErr
}

func testConfigs() (config.AbuseControlConfig, config.AlertsConfig) {
	return config.AbuseControlConfig{
			Window:            10 * time.Minute,
			CooldownWindow:    60 * time.Second,
			MinFormFillTime:   1500 * time.Millisecond,
			FingerprintLimit:  5,
			FingerprintPerTag: 2,
			TagLimit:          8,
			TagVolumeCap:      8,
			MaxMessageLinks:   2,
			MaxCharRun:        8,
		}, config.AlertsConfig{
			MessageMinLength: 10,
			MessageMaxLength: 1000,
		}
}

func validSubmission() Submission {
	return Submission{
		PublicID:    "abc123defg",
		Fingerprint: "fp-one",
		UserAgent:   "Mozilla/5.0",
		Message:     "I found your dog near the park entrance",
		FillTime:    5 * time.Second,
	}
}

func newTestEngine(t *testing.T, store DurableStore) *Engine {
	t.Helper()
	abuseCfg, alertsCfg := testConfigs()
	engine, err := NewEngine(abuseCfg, alertsCfg, NewSlidingWindowLimiter(), store)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEvaluateAllowsCleanSubmission(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})
	decision, err := engine.Evaluate(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeAllow {
		t.Fatalf("expected allow, got %v (%v)", decision.Outcome, decision.Err)
	}
}

func TestEvaluateHoneypotIsSilent(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})
	sub := validSubmission()
	sub.Honeypot = "gotcha"

	decision, err := engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeSilentAccept {
		t.Fatalf("expected silent accept, got %v", decision.Outcome)
	}
	if decision.Err != nil {
		t.Fatalf("silent accept must not carry an error, got %v", decision.Err)
	}
}

func TestEvaluateMessageBounds(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})

	cases := []struct {
		name    string
		message string
		allow   bool
	}{
		{"too short", "short", false},
		{"exactly min", strings.Repeat("ab", 5), true},
		{"exactly max", strings.Repeat("ab", 500), true},
		{"too long", strings.Repeat("ab", 500) + "x", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := validSubmission()
			sub.Message = tc.message
			decision, err := engine.Evaluate(context.Background(), sub)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if tc.allow && decision.Outcome != OutcomeAllow {
				t.Fatalf("expected allow, got %v (%v)", decision.Outcome, decision.Err)
			}
			if !tc.allow {
				if decision.Outcome != OutcomeReject {
					t.Fatalf("expected reject, got %v", decision.Outcome)
				}
				if decision.Err.Code() != pkgerrors.CodeValidation {
					t.Fatalf("expected validation code, got %s", decision.Err.Code())
				}
			}
		})
	}
}

func TestEvaluateLinkCountBound(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})

	sub := validSubmission()
	sub.Message = "She is here https://maps.google.com/a and https://maps.google.com/b"
	decision, err := engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeAllow {
		t.Fatalf("two links should pass, got %v (%v)", decision.Outcome, decision.Err)
	}

	sub.Message += " plus HTTP://spam.example/c"
	decision, err = engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeReject || decision.Err.Code() != pkgerrors.CodeValidation {
		t.Fatalf("three links should be rejected, got %v (%v)", decision.Outcome, decision.Err)
	}
}

func TestEvaluateRepeatedCharacterRun(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})

	// A max-length message of one held-down key is noise, not a report.
	sub := validSubmission()
	sub.Message = strings.Repeat("a", 1000)
	decision, err := engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeReject || decision.Err.Code() != pkgerrors.CodeValidation {
		t.Fatalf("pathological run should be rejected, got %v (%v)", decision.Outcome, decision.Err)
	}

	sub.Message = "Found your dog, she is sooo sweet!"
	decision, err = engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeAllow {
		t.Fatalf("short repeats are fine, got %v (%v)", decision.Outcome, decision.Err)
	}
}

func TestEvaluateForwardsPhoneToDuplicateCheck(t *testing.T) {
	store := &stubStore{}
	engine := newTestEngine(t, store)

	sub := validSubmission()
	sub.Phone = "+15559876543"
	if _, err := engine.Evaluate(context.Background(), sub); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if store.lastDupPhone != "+15559876543" {
		t.Fatalf("duplicate check must see the finder phone, saw %q", store.lastDupPhone)
	}
	if store.lastDupMessage != sub.Message {
		t.Fatalf("duplicate check must see the message, saw %q", store.lastDupMessage)
	}
}

func TestEvaluateTimingHeuristic(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})

	sub := validSubmission()
	sub.FillTime = 800 * time.Millisecond
	decision, err := engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeSilentAccept {
		t.Fatalf("sub-threshold fill time should be silently dropped, got %v", decision.Outcome)
	}

	// Unreported fill time is not punished.
	sub.FillTime = 0
	decision, err = engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeAllow {
		t.Fatalf("missing fill time should pass, got %v", decision.Outcome)
	}
}

func TestEvaluateCooldownCookie(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.WithClock(func() time.Time { return now })

	recent := now.Add(-30 * time.Second)
	sub := validSubmission()
	sub.LastAlertAt = &recent

	decision, err := engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeReject || decision.Err.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit reject, got %v (%v)", decision.Outcome, decision.Err)
	}

	stale := now.Add(-2 * time.Minute)
	sub.LastAlertAt = &stale
	decision, err = engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeAllow {
		t.Fatalf("expired cooldown should pass, got %v", decision.Outcome)
	}
}

func TestEvaluatePerTagFingerprintWindow(t *testing.T) {
	engine := newTestEngine(t, &stubStore{})
	sub := validSubmission()

	// FingerprintPerTag is 2; vary the message so the duplicate layer stays out
	// of the way.
	for i := 0; i < 2; i++ {
		sub.Message = validSubmission().Message + strings.Repeat("!", i)
		decision, err := engine.Evaluate(context.Background(), sub)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if decision.Outcome != OutcomeAllow {
			t.Fatalf("submission %d should pass, got %v (%v)", i+1, decision.Outcome, decision.Err)
		}
	}

	sub.Message = validSubmission().Message + "!!!"
	decision, err := engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeReject || decision.Err.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("third submission for the same tag should be throttled, got %v", decision.Outcome)
	}

	// A different tag under the same fingerprint still passes.
	sub.PublicID = "zzz999yyy0"
	decision, err = engine.Evaluate(context.Background(), sub)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeAllow {
		t.Fatalf("different tag should pass, got %v (%v)", decision.Outcome, decision.Err)
	}
}

func TestEvaluateDuplicateDetection(t *testing.T) {
	engine := newTestEngine(t, &stubStore{duplicate: true})
	decision, err := engine.Evaluate(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeReject || decision.Err.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict reject, got %v (%v)", decision.Outcome, decision.Err)
	}
}

func TestEvaluateVolumeCap(t *testing.T) {
	engine := newTestEngine(t, &stubStore{recentCount: 8})
	decision, err := engine.Evaluate(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Outcome != OutcomeReject || decision.Err.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected volume cap reject, got %v (%v)", decision.Outcome, decision.Err)
	}
}

func TestEvaluateFailsClosedOnStoreError(t *testing.T) {
	engine := newTestEngine(t, &stubStore{dupErr: errors.New("db down")})
	_, err := engine.Evaluate(context.Background(), validSubmission())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
