// ABOUTME: Store type and shared errors for matchmaking desk persistence
// ABOUTME: All statements are MySQL-flavored and run through the db gateway

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/horoscope-desk/internal/db"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrNothingToUpdate is returned when a patch carries no fields
var ErrNothingToUpdate = errors.New("nothing to update")

// Duplicate fields reported by DuplicateError.
const (
	FieldRegistrationID = "registration_id"
	FieldPhone          = "phone"
	FieldWhatsApp       = "whatsapp"
)

// DuplicateError reports which unique field a registration write collided on.
// Field is empty when the violation could not be attributed.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return "duplicate value"
	}
	return "duplicate " + e.Field
}

// Is matches db.ErrDuplicateKey.
func (e *DuplicateError) Is(target error) bool {
	return target == db.ErrDuplicateKey
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// Store is the business data layer. It holds no state beyond the executor.
type Store struct {
	db db.Executor
}

// New creates a Store over the given executor (normally *db.Gateway).
func New(exec db.Executor) *Store {
	return &Store{db: exec}
}

// Optional is a JSON-patchable string. Set is true when the key appeared in
// the document at all, Null when its value was null. Absent keys leave Set false.
type Optional struct {
	Set   bool
	Null  bool
	Value string
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		o.Value = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Accept numbers for phone-like fields.
		var n json.Number
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return fmt.Errorf("expected string or null: %w", err)
		}
		s = n.String()
	}
	o.Value = s
	return nil
}

// Some returns a set, non-null Optional.
func Some(v string) Optional {
	return Optional{Set: true, Value: v}
}

// trimmedOrNil returns nil for absent, null or blank values.
func (o Optional) trimmedOrNil() any {
	if !o.Set || o.Null {
		return nil
	}
	v := strings.TrimSpace(o.Value)
	if v == "" {
		return nil
	}
	return v
}

// nullableString converts a trimmed value into a driver argument, nil when blank.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return v
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.Execute(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return len(res.Rows) > 0, nil
}
