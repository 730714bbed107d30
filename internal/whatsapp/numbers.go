// ABOUTME: Recipient number normalization and click-to-chat links
// ABOUTME: Numbers are digits only with the 91 country prefix applied

package whatsapp

import (
	"net/url"
	"strings"
)

// CountryPrefix is prepended to numbers entered in local form.
const CountryPrefix = "91"

// MaxRecipients is how many number fields a send form carries.
const MaxRecipients = 5

// Normalize strips non-digits and applies the country prefix: 10-digit local
// numbers and any number not already starting with 91 get it. Returns "" for
// input without digits.
func Normalize(raw string) string {
	n := Digits(raw)
	switch {
	case n == "":
		return ""
	case len(n) == 10, !strings.HasPrefix(n, CountryPrefix):
		return CountryPrefix + n
	default:
		return n
	}
}

// Digits strips every non-digit character.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeNumbers normalizes each input, drops empties, and removes
// duplicates keeping first-seen order.
func NormalizeNumbers(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		n := Normalize(r)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ChatLink returns a wa.me link that opens a chat with text prefilled.
func ChatLink(number, text string) string {
	return "https://wa.me/" + number + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
