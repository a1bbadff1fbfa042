package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sha256Hex joins parts with "|" and returns the SHA-256 digest as lowercase hex.
func Sha256Hex(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
