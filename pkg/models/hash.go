package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash returns the stable 64-bit content identity used for
// deduplication and pattern uniqueness: SHA-256 over the normalized form
// of the content (trimmed, lowercased, whitespace runs collapsed),
// truncated to 8 bytes. Content identity is not a security function.
func ContentHash(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(content))), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}
