// Package token probes the raw Cookie header for the session cookie
// issued by the auth service.
//
// The probe is advisory only: cookie presence says nothing about cookie
// validity. Its one job is to let a guarded navigation skip the remote
// identity check when no cookie exists at all. Presence never authorizes
// anything; the identity client must still be consulted.
package token

import "strings"

// Probe locates the named cookie in a raw Cookie header string. It
// returns the stored value and true when present, regardless of where in
// the string the cookie sits. Pure, no side effects.
func Probe(rawCookies, name string) (string, bool) {
	if rawCookies == "" || name == "" {
		return "", false
	}

	for _, part := range strings.Split(rawCookies, ";") {
		part = strings.TrimSpace(part)
		cookieName, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if cookieName == name {
			return value, true
		}
	}

	return "", false
}
