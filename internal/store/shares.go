// ABOUTME: Horoscope share records: which profile's horoscope went to which profile
// ABOUTME: One row per sender/recipient pair, refreshed on re-submission

package store

import (
	"context"
	"fmt"
)

// Share methods.
const (
	SharedViaWhatsApp = "whatsapp"
	SharedViaManual   = "manual"
	SharedViaOther    = "other"
)

// NewShare is the input to RecordShare. Nil pointers are sent as NULL and
// never overwrite a value already recorded for the pair.
type NewShare struct {
	SenderRegistrationID    string  `json:"sender_registration_id"`
	RecipientRegistrationID string  `json:"recipient_registration_id"`
	SharedVia               *string `json:"shared_via"`
	Notes                   *string `json:"notes"`
}

// ValidSharedVia reports whether v is an accepted share method.
func ValidSharedVia(v string) bool {
	switch v {
	case SharedViaWhatsApp, SharedViaManual, SharedViaOther:
		return true
	}
	return false
}

// RecordShare inserts the pair or refreshes shared_at on an existing one.
// An unknown profile ID surfaces as db.ErrForeignKey.
func (s *Store) RecordShare(ctx context.Context, in NewShare) error {
	_, err := s.db.Execute(ctx,
		`INSERT INTO horoscope_shares (sender_registration_id, recipient_registration_id, shared_via, notes)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE shared_at = CURRENT_TIMESTAMP, shared_via = COALESCE(VALUES(shared_via), shared_via), notes = COALESCE(VALUES(notes), notes)`,
		in.SenderRegistrationID, in.RecipientRegistrationID, nullableString(in.SharedVia), nullableString(in.Notes),
	)
	if err != nil {
		return fmt.Errorf("recording share: %w", err)
	}
	return nil
}
