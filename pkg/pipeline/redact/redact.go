package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Header dumps from net/http and proxies ("X-Api-Key: abc", "X-api-key=[abc]").
	apiKeyHeaderRe = regexp.MustCompile(`(?i)\bx-api-key\b\s*[:=]\s*\[?[^\s"'\]]+\]?`)

	// Common key=value formats that sometimes leak in error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|pdl[_-]?api[_-]?key)\b\s*[:=]\s*[^\s"'<]+`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyHeaderRe.ReplaceAllString(out, "X-api-key: <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}

// Value masks a known secret wherever it appears verbatim in s.
func Value(s, secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" || s == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<redacted>")
}
