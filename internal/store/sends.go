// ABOUTME: Outbound message logs and the profile lookup view built from them
// ABOUTME: Recipient numbers are matched back to profiles with or without the 91 prefix

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/horoscope-desk/internal/db"
)

// SendRecord is one logged outbound message, with the profile the recipient
// number belongs to when one matches.
type SendRecord struct {
	RecipientWhatsApp   string          `json:"recipient_whatsapp"`
	FieldsSent          json.RawMessage `json:"fields_sent,omitempty"`
	SentAt              string          `json:"sent_at"`
	MatchRegistrationID *string         `json:"match_registration_id"`
	MatchName           *string         `json:"match_name"`
	MatchRole           *string         `json:"match_role"`
}

// LookupResult is everything the lookup screen shows for one profile ID.
type LookupResult struct {
	RegistrationID       string        `json:"registrationId"`
	Profile              *Registration `json:"profile"`
	HoroscopeSentTo      []SendRecord  `json:"horoscopeSentTo"`
	ProfileDetailsSentTo []SendRecord  `json:"profileDetailsSentTo"`
}

// RecordHoroscopeSend logs a horoscope document sent to a number.
func (s *Store) RecordHoroscopeSend(ctx context.Context, profileID, recipient, filePath string) error {
	var path any
	if filePath != "" {
		path = filePath
	}
	if _, err := s.db.Execute(ctx,
		"INSERT INTO horoscope_sends (registration_id, recipient_whatsapp, file_path) VALUES (?, ?, ?)",
		profileID, recipient, path,
	); err != nil {
		return fmt.Errorf("logging horoscope send: %w", err)
	}
	return nil
}

// RecordProfileDetailSend logs which profile fields were sent to a number.
func (s *Store) RecordProfileDetailSend(ctx context.Context, profileID, recipient string, fields []string) error {
	if fields == nil {
		fields = []string{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	if _, err := s.db.Execute(ctx,
		"INSERT INTO profile_detail_sends (registration_id, recipient_whatsapp, fields_sent) VALUES (?, ?, ?)",
		profileID, recipient, string(encoded),
	); err != nil {
		return fmt.Errorf("logging profile detail send: %w", err)
	}
	return nil
}

// matchSubquery resolves a recipient number to a profile column. Numbers are
// logged with the 91 country prefix while profiles may hold the local form.
func matchSubquery(column, alias, as string) string {
	return "(SELECT r2." + column + " FROM registrations r2 WHERE r2.whatsapp_number = " + alias + ".recipient_whatsapp" +
		" OR r2.phone = " + alias + ".recipient_whatsapp" +
		" OR r2.whatsapp_number = SUBSTRING(" + alias + ".recipient_whatsapp, 3)" +
		" OR r2.phone = SUBSTRING(" + alias + ".recipient_whatsapp, 3) LIMIT 1) AS " + as
}

func matchColumns(alias string) string {
	return matchSubquery("registration_id", alias, "match_registration_id") + ", " +
		matchSubquery("name", alias, "match_name") + ", " +
		matchSubquery("role", alias, "match_role")
}

func sendFromRecord(rec db.Record) SendRecord {
	sr := SendRecord{
		RecipientWhatsApp:   rec.String("recipient_whatsapp"),
		SentAt:              rec.String("sent_at"),
		MatchRegistrationID: rec.NullString("match_registration_id"),
		MatchName:           rec.NullString("match_name"),
		MatchRole:           rec.NullString("match_role"),
	}
	if raw := rec.String("fields_sent"); raw != "" && json.Valid([]byte(raw)) {
		sr.FieldsSent = json.RawMessage(raw)
	}
	return sr
}

func (s *Store) sends(ctx context.Context, query, profileID string) ([]SendRecord, error) {
	res, err := s.db.Execute(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	out := make([]SendRecord, 0, len(res.Rows))
	for _, rec := range res.Rows {
		out = append(out, sendFromRecord(rec))
	}
	return out, nil
}

// Lookup gathers a profile and everyone its horoscope or details were sent
// to. A missing profile yields a nil Profile, not an error.
func (s *Store) Lookup(ctx context.Context, profileID string) (*LookupResult, error) {
	result := &LookupResult{RegistrationID: profileID}

	profile, err := s.GetRegistrationByProfileID(ctx, profileID)
	switch {
	case err == nil:
		result.Profile = profile
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	result.HoroscopeSentTo, err = s.sends(ctx,
		"SELECT h.recipient_whatsapp, h.sent_at, "+matchColumns("h")+
			" FROM horoscope_sends h WHERE h.registration_id = ? ORDER BY h.sent_at DESC",
		profileID)
	if err != nil {
		return nil, fmt.Errorf("loading horoscope sends: %w", err)
	}

	result.ProfileDetailsSentTo, err = s.sends(ctx,
		"SELECT p.recipient_whatsapp, p.fields_sent, p.sent_at, "+matchColumns("p")+
			" FROM profile_detail_sends p WHERE p.registration_id = ? ORDER BY p.sent_at DESC",
		profileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile detail sends: %w", err)
	}

	return result, nil
}
