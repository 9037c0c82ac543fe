package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex SHA-256 of data. The pipeline keys artifacts on the
// hash of the raw document bytes, so reformatting a document is a miss.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns "<kind>:<sha256 of the JSON encoding of parts>".
// ArtifactKeyOpts has a fixed field order, so equal options encode equally.
func hashKey(kind string, parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		panic("cache: unencodable key part: " + err.Error())
	}
	return kind + ":" + Hash(data)
}
