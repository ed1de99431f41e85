package policy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern   = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]+=*`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, r := range []struct {
		pattern *regexp.Regexp
		marker  string
	}{
		{emailPattern, "[REDACTED_EMAIL]"},
		{bearerPattern, "[REDACTED_TOKEN]"},
		// Cards before phones, or long digit runs read as phone numbers.
		{cardPattern, "[REDACTED_CARD]"},
		{phonePattern, "[REDACTED_PHONE]"},
	} {
		next := r.pattern.ReplaceAllString(out, r.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// InputPreview returns a redacted, single-line prefix of speech input that is
// safe to put in logs. maxRunes <= 0 disables truncation.
func InputPreview(input string, maxRunes int) string {
	flat := strings.Join(strings.Fields(input), " ")
	if maxRunes > 0 && utf8.RuneCountInString(flat) > maxRunes {
		runes := []rune(flat)
		flat = string(runes[:maxRunes]) + "…"
	}
	out, _ := RedactPII(flat)
	return out
}
