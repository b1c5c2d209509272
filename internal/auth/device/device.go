// Package device turns a User-Agent header into a short display name used in
// login audit events.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns "<browser> on <os>", or "Unknown Device" for an
// empty header.
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown Browser"
	}
	if ua.Bot() {
		browser += " (bot)"
	}

	os := strings.TrimSpace(ua.OS())
	if os == "" {
		os = strings.TrimSpace(ua.Platform())
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
