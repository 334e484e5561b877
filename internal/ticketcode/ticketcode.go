// Package ticketcode turns decoded or typed text into a normalized ticket code.
package ticketcode

import (
	"net/url"
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`(?i)EVT-[A-Z0-9]+-[A-Z0-9]+`)

// Extract returns the ticket code carried by text.
// Precedence: the "code" query parameter of an absolute URL, then the first
// EVT-<alnum>-<alnum> match, then the whole text. The result is upper-cased.
func Extract(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if code := fromURL(text); code != "" {
		return strings.ToUpper(code)
	}
	if m := pattern.FindString(text); m != "" {
		return strings.ToUpper(m)
	}
	return strings.ToUpper(text)
}

func fromURL(text string) string {
	u, err := url.Parse(text)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("code"))
}

// Looks reports whether code has the EVT-<alnum>-<alnum> shape
func Looks(code string) bool {
	m := pattern.FindString(code)
	return m != "" && len(m) == len(code)
}
