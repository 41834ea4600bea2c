package mdcache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// hashHex returns the hex-encoded blake2b-256 digest of s, the render
// cache's key derivation (SPEC_FULL.md D.1). blake2b.New256 only errors
// on an invalid key length, which never happens with a nil key, so the
// error is not propagated to callers.
func hashHex(s string) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		return fallbackHex([]byte(s))
	}
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
