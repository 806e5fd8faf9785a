package common

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sha256Hex hashes the parts separated by NUL bytes and returns lowercase hex.
func Sha256Hex(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		_, _ = io.WriteString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
