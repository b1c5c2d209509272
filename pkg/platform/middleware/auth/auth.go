// Package auth extracts bearer credentials from incoming requests.
package auth

import (
	"net/http"
	"strings"
)

// LegacyTokenHeader is the header older clients send the raw token in.
const LegacyTokenHeader = "Token"

const bearerPrefix = "Bearer "

// ExtractToken returns the access token carried by r, preferring
// "Authorization: Bearer <t>" over the legacy Token header. It returns "" when
// neither is present.
func ExtractToken(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(r.Header.Get(LegacyTokenHeader))
}
