// Package logger holds log hygiene helpers. Subscriber addresses are PII
// and never appear unmasked in log output.
package logger

import "strings"

// RedactEmail masks an address for logging: "john.doe@example.com"
// becomes "jo***@example.com". Local parts of two characters or fewer
// are masked entirely, and non-addresses collapse to "***@***".
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
