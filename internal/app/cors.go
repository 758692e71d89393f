package app

import (
	"net/url"
	"strings"
)

// extractOriginHost strips the scheme and port from an Origin header value.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return strings.TrimSpace(origin)
	}
	return u.Hostname()
}

// matchOriginPattern matches a host against a configured origin pattern.
// A leading "*." wildcard matches the bare domain and any subdomain.
func matchOriginPattern(pattern, host string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || host == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		base := pattern[2:]
		return host == base || strings.HasSuffix(host, "."+base)
	}
	return strings.EqualFold(pattern, host)
}
