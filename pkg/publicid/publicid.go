package publicid

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// PublicIDAlphabet is lowercase alphanumeric only so profile URLs stay
	// unambiguous when spoken or typed.
	PublicIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	PublicIDLength   = 10

	// ActivationTokenAlphabet omits visually confusable glyphs (0/O, 1/I/l)
	// because tokens are printed on physical tags and typed by humans.
	ActivationTokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	ActivationTokenLength   = 9

	// DefaultAttempts bounds the collision-retry loop for unique ids.
	DefaultAttempts = 5
)

// ErrCollisionBudgetExhausted signals that every generated candidate collided.
// With a 36^10 keyspace this indicates a store problem, not bad luck.
var ErrCollisionBudgetExhausted = errors.New("public id collision budget exhausted")

// GeneratePublicID returns a random profile slug.
func GeneratePublicID() (string, error) {
	return randomString(PublicIDAlphabet, PublicIDLength)
}

// GenerateActivationToken returns a random manufacturing-time tag token.
func GenerateActivationToken() (string, error) {
	return randomString(ActivationTokenAlphabet, ActivationTokenLength)
}

// ExistsFunc probes the data store for a colliding identifier.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// UniquePublicID generates candidates until one passes the existence probe,
// spending at most attempts tries. Exhausting the budget is a hard error; the
// caller must not proceed with a value known to collide.
func UniquePublicID(ctx context.Context, attempts int, exists ExistsFunc) (string, error) {
	if exists == nil {
		return "", fmt.Errorf("exists probe is required")
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var id string
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate, err := GeneratePublicID()
		if err != nil {
			return err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return err
		}
		if taken {
			return retry.RetryableError(ErrCollisionBudgetExhausted)
		}
		id = candidate
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// randomString draws length symbols uniformly from alphabet using rejection
// sampling, so no symbol is favored by modulo bias.
func randomString(alphabet string, length int) (string, error) {
	if len(alphabet) == 0 || len(alphabet) > 256 {
		return "", fmt.Errorf("alphabet size %d out of range", len(alphabet))
	}

	max := 256 - (256 % len(alphabet))
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= max {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
