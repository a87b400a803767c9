package abuse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pawtagapp/pawtag-backend/pkg/config"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

// Rejection messages are fixed strings so callers cannot leak which layer
// fired or what the thresholds are.
const (
	msgMessageLength = "message must be between %d and %d characters"
	msgMessageNoise  = "message could not be accepted, please describe where you found the pet"
	msgCooldown      = "please wait a moment before sending another alert"
	msgRateLimited   = "too many alerts right now, please try again later"
	msgDuplicate     = "this alert was already received"
	msgVolumeCap     = "this pet has received several alerts recently, please try again later"
)

// Submission is everything the engine needs to judge one finder report.
// Fields mirror what the public form and its cookies carry; the engine never
// touches the HTTP layer itself.
type Submission struct {
	PublicID    string
	Fingerprint string
	UserAgent   string
	Message     string

	// Phone is the finder's callback number in normalized "+digits" form,
	// empty when not supplied. Feeds the durable duplicate check.
	Phone string

	// Honeypot is the hidden form field. Humans leave it empty.
	Honeypot string

	// FillTime is how long the form was on screen before submission.
	// Zero means the client did not report it, which is not held against them.
	FillTime time.Duration

	// LastAlertAt comes from the short-lived cooldown cookie, when present.
	LastAlertAt *time.Time
}

// Outcome classifies the engine's decision.
type Outcome int

const (
	// OutcomeAllow admits the submission for persistence.
	OutcomeAllow Outcome = iota
	// OutcomeSilentAccept means respond as if the alert was recorded but
	// drop it. Used for bot signals so the bot learns nothing.
	OutcomeSilentAccept
	// OutcomeReject means return Decision.Err to the client.
	OutcomeReject
)

// Decision is the engine's verdict on one submission.
type Decision struct {
	Outcome Outcome
	Err     *pkgerrors.Error
}

// DurableStore answers the persistence-backed questions: duplicates and the
// absolute per-pet volume cap. Backed by the alerts repository in production.
type DurableStore interface {
	CountRecentByPublicID(ctx context.Context, publicID string, since time.Time) (int64, error)
	HasRecentDuplicate(ctx context.Context, publicID, userAgent, message, phone string, since time.Time) (bool, error)
}

// Engine runs the layered checks over anonymous finder submissions. Layers
// are ordered cheapest first; the database is only consulted for submissions
// that survived every in-process check.
type Engine struct {
	cfg     config.AbuseControlConfig
	msgMin  int
	msgMax  int
	limiter RateLimiter
	store   DurableStore
	now     func() time.Time
}

// NewEngine assembles the engine. The limiter and store are required; the
// clock is injectable for tests via WithClock.
func NewEngine(cfg config.AbuseControlConfig, alerts config.AlertsConfig, limiter RateLimiter, store DurableStore) (*Engine, error) {
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if store == nil {
		return nil, fmt.Errorf("durable store required")
	}
	return &Engine{
		cfg:     cfg,
		msgMin:  alerts.MessageMinLength,
		msgMax:  alerts.MessageMaxLength,
		limiter: limiter,
		store:   store,
		now:     time.Now,
	}, nil
}

// WithClock replaces the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Evaluate runs the submission through every layer in order. A non-nil error
// means an infrastructure failure, not a verdict; the engine fails closed.
func (e *Engine) Evaluate(ctx context.Context, sub Submission) (Decision, error) {
	// Layer 1: honeypot. A filled hidden field is a bot, full stop.
	if sub.Honeypot != "" {
		return Decision{Outcome: OutcomeSilentAccept}, nil
	}

	// Layer 2: structural validation. Length first, then the spam shapes:
	// link farms and held-down-key noise.
	if n := len([]rune(sub.Message)); n < e.msgMin || n > e.msgMax {
		return reject(pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf(msgMessageLength, e.msgMin, e.msgMax))), nil
	}
	if e.cfg.MaxMessageLinks > 0 && countLinks(sub.Message) > e.cfg.MaxMessageLinks {
		return reject(pkgerrors.New(pkgerrors.CodeValidation, msgMessageNoise)), nil
	}
	if e.cfg.MaxCharRun > 0 && longestCharRun(sub.Message) > e.cfg.MaxCharRun {
		return reject(pkgerrors.New(pkgerrors.CodeValidation, msgMessageNoise)), nil
	}

	// Layer 3: timing heuristic. Humans do not fill a form in under the
	// threshold; treat it like the honeypot so the bot sees success.
	if sub.FillTime > 0 && sub.FillTime < e.cfg.MinFormFillTime {
		return Decision{Outcome: OutcomeSilentAccept}, nil
	}

	// Layer 4: per-browser cooldown from the cookie.
	if sub.LastAlertAt != nil && e.now().Sub(*sub.LastAlertAt) < e.cfg.CooldownWindow {
		return reject(pkgerrors.New(pkgerrors.CodeRateLimit, msgCooldown)), nil
	}

	// Layer 5: sliding windows, narrowest key first.
	windows := []struct {
		key   string
		limit int
	}{
		{"fp_tag:" + sub.Fingerprint + ":" + sub.PublicID, e.cfg.FingerprintPerTag},
		{"fp:" + sub.Fingerprint, e.cfg.FingerprintLimit},
		{"tag:" + sub.PublicID, e.cfg.TagLimit},
	}
	for _, w := range windows {
		allowed, err := e.limiter.TryConsume(ctx, w.key, w.limit, e.cfg.Window)
		if err != nil {
			return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter")
		}
		if !allowed {
			return reject(pkgerrors.New(pkgerrors.CodeRateLimit, msgRateLimited)), nil
		}
	}

	since := e.now().Add(-e.cfg.Window)

	// Layer 6: durable duplicate check.
	dup, err := e.store.HasRecentDuplicate(ctx, sub.PublicID, sub.UserAgent, sub.Message, sub.Phone, since)
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "duplicate check")
	}
	if dup {
		return reject(pkgerrors.New(pkgerrors.CodeConflict, msgDuplicate)), nil
	}

	// Layer 7: durable per-pet volume cap. Catches distributed floods that
	// no single fingerprint window can see.
	count, err := e.store.CountRecentByPublicID(ctx, sub.PublicID, since)
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "volume check")
	}
	if count >= int64(e.cfg.TagVolumeCap) {
		return reject(pkgerrors.New(pkgerrors.CodeRateLimit, msgVolumeCap)), nil
	}

	return Decision{Outcome: OutcomeAllow}, nil
}

func reject(err *pkgerrors.Error) Decision {
	return Decision{Outcome: OutcomeReject, Err: err}
}

func countLinks(message string) int {
	lower := strings.ToLower(message)
	return strings.Count(lower, "http://") + strings.Count(lower, "https://")
}

// longestCharRun returns the length of the longest run of one repeated rune.
func longestCharRun(message string) int {
	var prev rune
	run, longest := 0, 0
	for _, r := range message {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
