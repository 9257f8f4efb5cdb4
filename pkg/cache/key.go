package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/cespare/xxhash/v2"
)

// keyPrefix namespaces conversion results, so one Redis database can be
// shared with other users.
const keyPrefix = "meshio:convert:"

// ContentKey derives the key of a conversion result from the input bytes
// and the parameters that shape the output (formats, option pairs).
//
// Keys address results of untrusted uploads in a shared store, so they use
// the full SHA-256 digest (64 hex chars). Parts are JSON-encoded ahead of
// the data, so ("ab", "c") and ("a", "bc") differ.
func ContentKey(data []byte, parts ...string) string {
	if parts == nil {
		parts = []string{}
	}
	head, _ := json.Marshal(parts)
	d := sha256.New()
	_, _ = d.Write(head)
	_, _ = d.Write(data)
	return keyPrefix + hex.EncodeToString(d.Sum(nil))
}

// Hash returns the hex xxhash digest of data. It only spreads file cache
// entries across shard directories and must not be used as a key.
func Hash(data []byte) string {
	d := xxhash.New()
	_, _ = d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}
