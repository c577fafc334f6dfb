package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// DocumentKey derives the cache key of a rendered document from the
// fixture content and every option that changes the rendering. Include
// patterns are order independent.
func DocumentKey(fixture []byte, format string, include []string, withDocs bool) string {
	patterns := append([]string(nil), include...)
	sort.Strings(patterns)

	h := sha256.New()
	h.Write(fixture)
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(format)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(patterns, "\x1f")))
	if withDocs {
		h.Write([]byte{0, 1})
	}
	sum := h.Sum(nil)
	return "doc:" + hex.EncodeToString(sum[:16])
}
