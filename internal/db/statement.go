// ABOUTME: Read/write classification of SQL statements for execution dispatch
// ABOUTME: Looks only at the leading keyword; the gateway never parses SQL semantically

package db

import (
	"strings"
	"unicode"
)

// readKeywords are the leading keywords that produce rows.
var readKeywords = []string{"SELECT", "WITH", "PRAGMA", "SHOW", "EXPLAIN", "DESCRIBE"}

// IsRead reports whether the statement is a read, judged by its first keyword
// after any leading whitespace, comments or opening parentheses.
func IsRead(query string) bool {
	word := strings.ToUpper(leadingKeyword(query))
	for _, kw := range readKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

// leadingKeyword returns the first bare word of the statement.
func leadingKeyword(s string) string {
scan:
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return unicode.IsSpace(r) || r == '('
		})
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		default:
			break scan
		}
	}

	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
