package app

import (
	"net/url"
	"strings"
)

// originAllowed matches a request origin against the configured patterns.
// Patterns are exact hosts or "*.example.com" suffix wildcards.
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, pattern := range patterns {
		if pattern == host {
			return true
		}
		if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]) {
			return true
		}
	}
	return false
}
