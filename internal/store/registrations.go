// ABOUTME: Registration (profile) persistence: search, lookup, create, patch
// ABOUTME: Enforces profile ID, phone and WhatsApp uniqueness before hitting the constraint

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/horoscope-desk/internal/db"
	"github.com/2389/horoscope-desk/internal/whatsapp"
)

// ListLimit caps registration search results.
const ListLimit = 30

// Registration is one client profile.
type Registration struct {
	ID             int64   `json:"id"`
	RegistrationID string  `json:"registration_id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	Phone          *string `json:"phone"`
	WhatsAppNumber *string `json:"whatsapp_number"`
	HoroscopePath  *string `json:"horoscope_path"`
	Notes          *string `json:"notes"`
	Address        *string `json:"address"`
	CreatedAt      string  `json:"created_at"`
}

// NewRegistration is the input to CreateRegistration. Empty optional fields
// are stored as NULL.
type NewRegistration struct {
	RegistrationID string `json:"registration_id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	Phone          string `json:"phone"`
	WhatsAppNumber string `json:"whatsapp_number"`
	Notes          string `json:"notes"`
	Address        string `json:"address"`
}

// RegistrationPatch carries the fields present in an update request.
type RegistrationPatch struct {
	RegistrationID Optional `json:"registration_id"`
	Name           Optional `json:"name"`
	Role           Optional `json:"role"`
	Phone          Optional `json:"phone"`
	WhatsAppNumber Optional `json:"whatsapp_number"`
	HoroscopePath  Optional `json:"horoscope_path"`
	Notes          Optional `json:"notes"`
	Address        Optional `json:"address"`
}

// RegistrationFilter narrows ListRegistrations. Prefix wins over Search.
type RegistrationFilter struct {
	Search string
	Prefix string
}

const registrationColumns = "id, registration_id, name, role, phone, whatsapp_number, horoscope_path, notes, address, created_at"

func registrationFromRecord(rec db.Record) Registration {
	return Registration{
		ID:             rec.Int64("id"),
		RegistrationID: rec.String("registration_id"),
		Name:           rec.String("name"),
		Role:           rec.String("role"),
		Phone:          rec.NullString("phone"),
		WhatsAppNumber: rec.NullString("whatsapp_number"),
		HoroscopePath:  rec.NullString("horoscope_path"),
		Notes:          rec.NullString("notes"),
		Address:        rec.NullString("address"),
		CreatedAt:      rec.String("created_at"),
	}
}

// ListRegistrations returns up to ListLimit profiles ordered by profile ID.
func (s *Store) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]Registration, error) {
	query := "SELECT " + registrationColumns + " FROM registrations WHERE 1=1"
	var args []any

	prefix := strings.TrimSpace(f.Prefix)
	search := strings.TrimSpace(f.Search)
	switch {
	case prefix != "":
		query += " AND registration_id LIKE ?"
		args = append(args, prefix+"%")
	case search != "":
		query += " AND (registration_id LIKE ? OR name LIKE ? OR phone LIKE ? OR whatsapp_number LIKE ?)"
		term := "%" + search + "%"
		args = append(args, term, term, term, term)
	}
	query += fmt.Sprintf(" ORDER BY registration_id ASC LIMIT %d", ListLimit)

	res, err := s.db.Execute(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	out := make([]Registration, 0, len(res.Rows))
	for _, rec := range res.Rows {
		out = append(out, registrationFromRecord(rec))
	}
	return out, nil
}

func (s *Store) oneRegistration(ctx context.Context, query string, args ...any) (*Registration, error) {
	res, err := s.db.Execute(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading registration: %w", err)
	}
	rec, ok := res.First()
	if !ok {
		return nil, ErrNotFound
	}
	r := registrationFromRecord(rec)
	return &r, nil
}

// GetRegistration looks up a profile by its row id.
func (s *Store) GetRegistration(ctx context.Context, id int64) (*Registration, error) {
	return s.oneRegistration(ctx, "SELECT "+registrationColumns+" FROM registrations WHERE id = ?", id)
}

// GetRegistrationByProfileID looks up a profile by its business identifier.
func (s *Store) GetRegistrationByProfileID(ctx context.Context, profileID string) (*Registration, error) {
	return s.oneRegistration(ctx,
		"SELECT "+registrationColumns+" FROM registrations WHERE registration_id = ?",
		strings.TrimSpace(profileID))
}

// CreateRegistration inserts a profile and returns its row id. A collision on
// any unique field returns *DuplicateError.
func (s *Store) CreateRegistration(ctx context.Context, in NewRegistration) (int64, error) {
	regID := strings.TrimSpace(in.RegistrationID)
	phone := nullableString(&in.Phone)
	var waNumber any
	if wa := whatsapp.Digits(in.WhatsAppNumber); wa != "" {
		waNumber = wa
	}

	if err := s.checkUnique(ctx, 0, regID, phone, waNumber); err != nil {
		return 0, err
	}

	var notes any
	if in.Notes != "" {
		notes = in.Notes
	}
	res, err := s.db.Execute(ctx,
		`INSERT INTO registrations (registration_id, name, role, phone, whatsapp_number, notes, address)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		regID, in.Name, in.Role, phone, waNumber, notes, nullableString(&in.Address),
	)
	if err != nil {
		return 0, duplicateOr(err, "creating registration")
	}
	return res.InsertedID(), nil
}

// UpdateRegistration applies the fields present in patch to row id.
func (s *Store) UpdateRegistration(ctx context.Context, id int64, patch RegistrationPatch) error {
	var regID, phone, waNumber any
	if patch.RegistrationID.Set && !patch.RegistrationID.Null {
		if v := strings.TrimSpace(patch.RegistrationID.Value); v != "" {
			regID = v
		}
	}
	phone = patch.Phone.trimmedOrNil()
	if patch.WhatsAppNumber.Set && !patch.WhatsAppNumber.Null {
		if wa := whatsapp.Digits(patch.WhatsAppNumber.Value); wa != "" {
			waNumber = wa
		}
	}
	if err := s.checkUnique(ctx, id, regID, phone, waNumber); err != nil {
		return err
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	raw := func(o Optional) any {
		if o.Null {
			return nil
		}
		return o.Value
	}

	if patch.RegistrationID.Set {
		add("registration_id", raw(patch.RegistrationID))
	}
	if patch.Name.Set {
		add("name", raw(patch.Name))
	}
	if patch.Role.Set {
		add("role", raw(patch.Role))
	}
	if patch.Phone.Set {
		add("phone", phone)
	}
	if patch.WhatsAppNumber.Set {
		add("whatsapp_number", waNumber)
	}
	if patch.HoroscopePath.Set {
		add("horoscope_path", raw(patch.HoroscopePath))
	}
	if patch.Notes.Set {
		add("notes", raw(patch.Notes))
	}
	if patch.Address.Set {
		add("address", patch.Address.trimmedOrNil())
	}
	if len(sets) == 0 {
		return ErrNothingToUpdate
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	if _, err := s.db.Execute(ctx,
		"UPDATE registrations SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	); err != nil {
		return duplicateOr(err, "updating registration")
	}
	return nil
}

// SetHoroscopePath records the uploaded horoscope file for a profile. It
// reports whether a profile with that ID exists.
func (s *Store) SetHoroscopePath(ctx context.Context, profileID, path string) (bool, error) {
	res, err := s.db.Execute(ctx,
		"UPDATE registrations SET horoscope_path = ?, updated_at = CURRENT_TIMESTAMP WHERE registration_id = ?",
		path, profileID,
	)
	if err != nil {
		return false, fmt.Errorf("setting horoscope path: %w", err)
	}
	return res.AffectedRows() > 0, nil
}

// checkUnique runs the per-field duplicate probes. excludeID skips the row
// being updated; nil values are not checked.
func (s *Store) checkUnique(ctx context.Context, excludeID int64, regID, phone, waNumber any) error {
	probes := []struct {
		field  string
		column string
		value  any
	}{
		{FieldRegistrationID, "registration_id", regID},
		{FieldPhone, "phone", phone},
		{FieldWhatsApp, "whatsapp_number", waNumber},
	}
	for _, p := range probes {
		if p.value == nil {
			continue
		}
		query := "SELECT id FROM registrations WHERE " + p.column + " = ?"
		args := []any{p.value}
		if excludeID > 0 {
			query += " AND id != ?"
			args = append(args, excludeID)
		}
		found, err := s.exists(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("checking %s: %w", p.field, err)
		}
		if found {
			return &DuplicateError{Field: p.field}
		}
	}
	return nil
}

// duplicateOr converts a constraint violation that slipped past the probes
// into *DuplicateError and wraps anything else.
func duplicateOr(err error, op string) error {
	if errors.Is(err, db.ErrDuplicateKey) {
		return &DuplicateError{
			Field: db.DuplicateField(err, FieldRegistrationID, FieldPhone, FieldWhatsApp),
			Err:   err,
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
