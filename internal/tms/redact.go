package tms

import "net/http"

const redactedPlaceholder = "***REDACTED***"

// RedactHeaders returns a copy of h safe for logs and debug dumps: the auth
// cookie and any bearer token are replaced with a fixed placeholder. The raw
// token must never reach a log line or an outgoing message.
func RedactHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	if out.Get("Cookie") != "" {
		out.Set("Cookie", AuthCookieName+"="+redactedPlaceholder)
	}
	if out.Get("Authorization") != "" {
		out.Set("Authorization", "Bearer "+redactedPlaceholder)
	}
	return out
}
