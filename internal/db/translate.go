// ABOUTME: MySQL-to-SQLite dialect translation applied at the gateway boundary
// ABOUTME: An ordered table of targeted rewrite rules; no general SQL parsing

package db

import (
	"regexp"
	"strings"
)

// rewriteRule is one targeted text substitution.
type rewriteRule struct {
	name  string
	apply func(string) string
}

// upsertTargets maps the tables whose ON DUPLICATE KEY UPDATE idiom is rewritten
// to the unique key SQLite needs named in ON CONFLICT(...).
// Any new upsert call site needs an entry here plus a fixture test.
var upsertTargets = map[string]string{
	"app_settings":     `"key"`,
	"horoscope_shares": "sender_registration_id, recipient_registration_id",
}

var (
	curdateRe      = regexp.MustCompile(`(?i)\bCURDATE\(\s*\)`)
	currentTSRe    = regexp.MustCompile(`(?i)\bCURRENT_TIMESTAMP\b(\(\s*\))?`)
	collateRe      = regexp.MustCompile(`(?i)\s+COLLATE\s+[A-Za-z0-9_]+`)
	backtickRe     = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_]*)`")
	substringRe    = regexp.MustCompile(`(?i)\bSUBSTRING\(\s*([^(),]+?)\s*,\s*([^(),]+?)\s*\)`)
	insertTableRe  = regexp.MustCompile(`(?i)^\s*INSERT\s+INTO\s+([A-Za-z_][A-Za-z0-9_]*)`)
	onDuplicateRe  = regexp.MustCompile(`(?i)\bON\s+DUPLICATE\s+KEY\s+UPDATE\b`)
	valuesColumnRe = regexp.MustCompile(`(?i)\bVALUES\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)`)
)

// sqliteRules is the entire translation surface, applied in order.
// The upsert rule runs last so it sees already-quoted identifiers.
var sqliteRules = []rewriteRule{
	{name: "curdate", apply: func(s string) string {
		return curdateRe.ReplaceAllString(s, "date('now')")
	}},
	{name: "current_timestamp", apply: func(s string) string {
		return currentTSRe.ReplaceAllString(s, "datetime('now')")
	}},
	{name: "collate", apply: func(s string) string {
		return collateRe.ReplaceAllString(s, "")
	}},
	{name: "quoted_identifier", apply: func(s string) string {
		return backtickRe.ReplaceAllString(s, `"$1"`)
	}},
	{name: "substring", apply: func(s string) string {
		return substringRe.ReplaceAllString(s, "substr($1, $2)")
	}},
	{name: "upsert", apply: rewriteUpsert},
}

// TranslateSQLite rewrites a MySQL-flavored statement into the SQLite dialect.
func TranslateSQLite(query string) string {
	for _, rule := range sqliteRules {
		query = rule.apply(query)
	}
	return query
}

// rewriteUpsert turns INSERT ... ON DUPLICATE KEY UPDATE a = VALUES(a) into
// INSERT ... ON CONFLICT(<key>) DO UPDATE SET a = excluded.a for known tables.
// COALESCE(VALUES(x), x) becomes COALESCE(excluded.x, x), which keeps the stored
// value when the new one is NULL.
func rewriteUpsert(query string) string {
	loc := onDuplicateRe.FindStringIndex(query)
	if loc == nil {
		return query
	}
	m := insertTableRe.FindStringSubmatch(query)
	if m == nil {
		return query
	}
	target, ok := upsertTargets[strings.ToLower(m[1])]
	if !ok {
		return query
	}

	head := query[:loc[0]]
	tail := query[loc[1]:]
	tail = valuesColumnRe.ReplaceAllString(tail, "excluded.$1")
	return head + "ON CONFLICT(" + target + ") DO UPDATE SET" + tail
}
