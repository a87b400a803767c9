package abuse

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives a stable anonymous identity for a finder from their
// network address, user agent, and the long-lived finder cookie. The raw
// inputs are never stored; only the digest travels through the limiter keys.
func Fingerprint(ip, userAgent, finderID string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{ip, userAgent, finderID}, "|")))
	return hex.EncodeToString(sum[:])
}
