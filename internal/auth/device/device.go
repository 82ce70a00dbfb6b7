// Package device derives human-readable device names from User-Agent strings
// for session records and audit logs.
package device

import (
	"github.com/mssola/useragent"
)

// ParseUserAgent turns a raw User-Agent header into a compact display name
// like "Chrome on Mac OS X". Unparseable agents still produce a usable label.
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}

	return browser + " on " + os
}
