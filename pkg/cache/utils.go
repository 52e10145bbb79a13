package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key joins parts with ":" and skips empty strings.
func Key(parts ...interface{}) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := fmt.Sprint(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, ":")
}

// HashKey shortens long parameter strings into a stable key segment.
func HashKey(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:8])
}
