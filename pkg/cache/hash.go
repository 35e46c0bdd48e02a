package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey returns "<prefix>:<sha256 of the JSON-encoded parts>". Encoding
// the parts as a JSON array keeps ("ab", "c") and ("a", "bc") apart.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash is the hex sha256 of data. FileCache shards entries by its first
// two characters.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
