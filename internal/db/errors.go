// ABOUTME: Constraint violation classification for both backends
// ABOUTME: Wraps native driver errors as DuplicateKey / ForeignKey with the native text kept

package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrDuplicateKey is returned when a write violates a uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrForeignKey is returned when a write references a row that does not exist.
	ErrForeignKey = errors.New("foreign key violation")
)

// MySQL error numbers for the violations we classify.
const (
	mysqlDuplicateEntry   = 1062
	mysqlNoReferencedRow  = 1216
	mysqlNoReferencedRow2 = 1452
)

// SQLite extended result codes (SQLITE_CONSTRAINT_*).
const (
	sqliteConstraintForeignKey = 787
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// ConstraintError wraps a native constraint violation. Kind is ErrDuplicateKey or
// ErrForeignKey, so errors.Is works against either sentinel. The native message
// is preserved because call sites inspect it to name the offending column.
type ConstraintError struct {
	Kind    error
	Backend Backend
	Err     error
}

func (e *ConstraintError) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

// Is matches the sentinel kind.
func (e *ConstraintError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap exposes the native driver error.
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

// classifyError converts a native constraint error into a *ConstraintError.
// Other errors are returned unchanged.
func classifyError(backend Backend, err error) error {
	if err == nil {
		return nil
	}
	var kind error
	switch backend {
	case BackendMySQL:
		kind = mysqlConstraintKind(err)
	case BackendSQLite:
		kind = sqliteConstraintKind(err)
	}
	if kind == nil {
		return err
	}
	return &ConstraintError{Kind: kind, Backend: backend, Err: err}
}

func mysqlConstraintKind(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return ErrDuplicateKey
		case mysqlNoReferencedRow, mysqlNoReferencedRow2:
			return ErrForeignKey
		}
		return nil
	}
	// Fallback to string matching for wrapped or proxied errors
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Error 1062"):
		return ErrDuplicateKey
	case strings.Contains(msg, "Error 1452"):
		return ErrForeignKey
	}
	return nil
}

func sqliteConstraintKind(err error) error {
	var coder sqliteCoder
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return ErrDuplicateKey
		case sqliteConstraintForeignKey:
			return ErrForeignKey
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrDuplicateKey
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrForeignKey
	}
	return nil
}

// DuplicateField returns the first candidate column named in the native error
// text of a duplicate-key violation, or "" when none can be determined.
// This is a substring heuristic over driver messages such as
// "Duplicate entry 'x' for key 'registrations.phone'" (MySQL) and
// "UNIQUE constraint failed: registrations.phone" (SQLite).
func DuplicateField(err error, candidates ...string) string {
	var ce *ConstraintError
	if !errors.As(err, &ce) || ce.Kind != ErrDuplicateKey {
		return ""
	}
	msg := ce.Err.Error()
	for _, c := range candidates {
		if strings.Contains(msg, c) {
			return c
		}
	}
	return ""
}
