// Package dedup implements the three-tier deduplication guard: exact
// fingerprint match, MinHash/Jaccard near-duplicate detection, and topic
// cooldown. Ported from the teacher's Redis-key conventions
// (pkg/database/redisClient.go) and original_source/app/services/dedup.py.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var nonAlnumSpace = regexp.MustCompile(`[^\w\s]`)
var multiSpace = regexp.MustCompile(`\s+`)

// normalize lowercases, strips punctuation, and collapses whitespace —
// the same normalization the fingerprint and shingle builder both use.
func normalize(text string) string {
	text = strings.ToLower(text)
	text = nonAlnumSpace.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Fingerprint computes the SHA-256 hex digest identifying an event for
// exact-duplicate matching (spec.md §4.1).
func Fingerprint(userID, eventType, dedupeKey, title, source string) string {
	identity := dedupeKey
	if identity == "" {
		identity = normalize(title)
	}
	raw := strings.Join([]string{userID, eventType, identity, source}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
