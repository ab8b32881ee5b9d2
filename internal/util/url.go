package util

import (
	"net/url"
	"strings"
)

// IsRedirectSafe reports whether a redirect target may be used. Allowed
// are relative paths starting with "/" (but not "//" or backslash
// variants) and absolute URLs whose host matches baseURL. Everything
// else, including javascript: and data: schemes and header-injection
// attempts, is rejected.
func IsRedirectSafe(redirectURL, baseURL string) bool {
	// Empty redirect falls back to the default destination
	if redirectURL == "" {
		return true
	}

	if strings.ContainsAny(redirectURL, "\r\n") {
		return false
	}

	if strings.HasPrefix(redirectURL, "/") {
		// "//evil.com" is protocol-relative, "/\evil.com" a browser quirk
		if strings.HasPrefix(redirectURL, "//") || strings.Contains(redirectURL, "\\") {
			return false
		}
		return true
	}

	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	if parsed.Host != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return false
		}
		if parsed.Host != base.Host {
			return false
		}
	}

	return true
}
