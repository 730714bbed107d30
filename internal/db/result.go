// ABOUTME: Uniform result contract returned by the gateway for every backend
// ABOUTME: Rows for reads, a WriteResult descriptor for inserts/updates/deletes

package db

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Executor runs one SQL statement and returns the uniform Result.
// Statements are written in the MySQL dialect; the Gateway translates as needed.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (Result, error)
}

// Record is a single row keyed by column name.
type Record map[string]any

// WriteResult describes the outcome of an insert, update or delete.
type WriteResult struct {
	InsertedID   int64 // 0 when the statement generated no key
	AffectedRows int64
}

// Result is what Execute returns. Exactly one of Rows (reads) or Write (writes)
// is meaningful; Write is nil for reads.
type Result struct {
	Rows  []Record
	Write *WriteResult
}

// IsWrite reports whether the result came from a write statement.
func (r Result) IsWrite() bool {
	return r.Write != nil
}

// First returns the first row, if any.
func (r Result) First() (Record, bool) {
	if len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// InsertedID returns the generated key of a write, or 0.
func (r Result) InsertedID() int64 {
	if r.Write == nil {
		return 0
	}
	return r.Write.InsertedID
}

// AffectedRows returns the affected row count of a write, or 0.
func (r Result) AffectedRows() int64 {
	if r.Write == nil {
		return 0
	}
	return r.Write.AffectedRows
}

// String returns the column as a string. NULL and missing columns yield "".
func (rec Record) String(key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Date returns a DATE column as YYYY-MM-DD. MySQL hands back time.Time with
// parseTime on; SQLite stores the text as written.
func (rec Record) Date(key string) string {
	if t, ok := rec[key].(time.Time); ok {
		return t.Format(time.DateOnly)
	}
	return rec.String(key)
}

// NullString returns the column as a *string, nil for NULL.
func (rec Record) NullString(key string) *string {
	if rec[key] == nil {
		return nil
	}
	s := rec.String(key)
	return &s
}

// NullInt64 returns the column as a *int64, nil for NULL.
func (rec Record) NullInt64(key string) *int64 {
	if rec[key] == nil {
		return nil
	}
	n := rec.Int64(key)
	return &n
}

// Int64 returns the column as an int64. Non-numeric values yield 0.
func (rec Record) Int64(key string) int64 {
	switch v := rec[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	default:
		return 0
	}
}

// normalizeRecord converts driver-specific scalar types into the shapes every
// caller expects: text columns arrive as []byte from the MySQL driver.
func normalizeRecord(rec map[string]any) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}
	return out
}
