package database

import "fmt"

// Key helpers for the ephemeral KV state in spec.md §3. Centralising them
// here keeps the dedup, rules, and enrich packages from hand-building
// Redis key strings independently and drifting out of sync.

func KeyExactDedup(fingerprint string) string {
	return fmt.Sprintf("dedup:exact:%s", fingerprint)
}

func KeyNearDedup(userID, fingerprint string) string {
	return fmt.Sprintf("dedup:lsh:%s:%s", userID, fingerprint)
}

func KeyNearDedupScanPattern(userID string) string {
	return fmt.Sprintf("dedup:lsh:%s:*", userID)
}

func KeyCount1h(userID string) string {
	return fmt.Sprintf("notif:count:%s:1h", userID)
}

func KeyCount24h(userID string) string {
	return fmt.Sprintf("notif:count:%s:24h", userID)
}

func KeyLastSend(userID, eventType string) string {
	return fmt.Sprintf("notif:last:%s:%s", userID, eventType)
}

func KeyCooldown(userID, eventType string) string {
	return fmt.Sprintf("notif:cooldown:%s:%s", userID, eventType)
}

func KeyUserProfileCache(userID string) string {
	return fmt.Sprintf("user:profile:%s", userID)
}
