package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey returns "prefix:<sha256 of the JSON encoded parts>".
func hashKey(prefix string, parts ...any) string {
	h := sha256.New()
	// Encoding plain values into a hash cannot fail.
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data. Rendered charts are cached under it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
