package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// GenerateETag generates a strong ETag for the given content
func GenerateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf(`"%s"`, hex.EncodeToString(hash[:16]))
}

// ParseIfNoneMatch splits an If-None-Match header into its entity tags
func ParseIfNoneMatch(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if header == "*" {
		return []string{"*"}
	}

	var etags []string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			etags = append(etags, part)
		}
	}
	return etags
}

// MatchesETag reports whether etag matches any of etags using weak
// comparison, as If-None-Match requires.
func MatchesETag(etag string, etags []string) bool {
	clean := strings.TrimPrefix(etag, "W/")
	for _, e := range etags {
		if e == "*" || strings.TrimPrefix(e, "W/") == clean {
			return true
		}
	}
	return false
}

// NotModified sets the ETag header and, when the request already holds
// that version, answers 304 and returns true.
func NotModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("ETag", etag)
	if MatchesETag(etag, ParseIfNoneMatch(r.Header.Get("If-None-Match"))) {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}
