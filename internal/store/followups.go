// ABOUTME: Follow-up reminders tied to a profile and optionally to a share
// ABOUTME: Lists all reminders or only pending ones due today

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/horoscope-desk/internal/db"
)

// Follow-up statuses.
const (
	FollowUpPending = "pending"
	FollowUpDone    = "done"
)

// FollowUp is a reminder joined with its profile's name and role.
type FollowUp struct {
	ID               int64   `json:"id"`
	RegistrationID   string  `json:"registration_id"`
	ShareID          *int64  `json:"share_id"`
	DueDate          string  `json:"due_date"`
	Note             string  `json:"note"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
	RegistrationName *string `json:"registration_name"`
	RegistrationRole *string `json:"registration_role"`
}

// NewFollowUp is the input to CreateFollowUp.
type NewFollowUp struct {
	RegistrationID string `json:"registration_id"`
	ShareID        *int64 `json:"share_id"`
	DueDate        string `json:"due_date"`
	Note           string `json:"note"`
	CreatedBy      int64  `json:"-"`
}

// FollowUpPatch carries the fields present in an update request.
type FollowUpPatch struct {
	Status  Optional `json:"status"`
	DueDate Optional `json:"due_date"`
	Note    Optional `json:"note"`
}

// ValidFollowUpStatus reports whether v is an accepted status.
func ValidFollowUpStatus(v string) bool {
	return v == FollowUpPending || v == FollowUpDone
}

func followUpFromRecord(rec db.Record) FollowUp {
	return FollowUp{
		ID:               rec.Int64("id"),
		RegistrationID:   rec.String("registration_id"),
		ShareID:          rec.NullInt64("share_id"),
		DueDate:          rec.Date("due_date"),
		Note:             rec.String("note"),
		Status:           rec.String("status"),
		CreatedAt:        rec.String("created_at"),
		RegistrationName: rec.NullString("registration_name"),
		RegistrationRole: rec.NullString("registration_role"),
	}
}

// ListFollowUps returns reminders ordered by due date, newest first within a
// day. With dueToday only pending reminders due on the current date are kept.
func (s *Store) ListFollowUps(ctx context.Context, dueToday bool) ([]FollowUp, error) {
	query := `SELECT f.id, f.registration_id, f.share_id, f.due_date, f.note, f.status, f.created_at,
		       r.name AS registration_name, r.role AS registration_role
		FROM follow_ups f
		LEFT JOIN registrations r ON r.registration_id = f.registration_id
		WHERE 1=1`
	var args []any
	if dueToday {
		query += " AND f.due_date = CURDATE() AND f.status = ?"
		args = append(args, FollowUpPending)
	}
	query += " ORDER BY f.due_date ASC, f.id DESC"

	res, err := s.db.Execute(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing follow-ups: %w", err)
	}
	out := make([]FollowUp, 0, len(res.Rows))
	for _, rec := range res.Rows {
		out = append(out, followUpFromRecord(rec))
	}
	return out, nil
}

// FollowUpsDueToday returns pending reminders due today.
func (s *Store) FollowUpsDueToday(ctx context.Context) ([]FollowUp, error) {
	return s.ListFollowUps(ctx, true)
}

// CreateFollowUp inserts a pending reminder and returns its id.
func (s *Store) CreateFollowUp(ctx context.Context, in NewFollowUp) (int64, error) {
	var shareID, createdBy any
	if in.ShareID != nil && *in.ShareID > 0 {
		shareID = *in.ShareID
	}
	if in.CreatedBy > 0 {
		createdBy = in.CreatedBy
	}
	res, err := s.db.Execute(ctx,
		`INSERT INTO follow_ups (registration_id, share_id, due_date, note, created_by)
		 VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(in.RegistrationID), shareID, in.DueDate, in.Note, createdBy,
	)
	if err != nil {
		return 0, fmt.Errorf("creating follow-up: %w", err)
	}
	return res.InsertedID(), nil
}

// UpdateFollowUp applies the fields present in patch to reminder id.
func (s *Store) UpdateFollowUp(ctx context.Context, id int64, patch FollowUpPatch) error {
	var (
		sets []string
		args []any
	)
	for _, f := range []struct {
		col string
		opt Optional
	}{
		{"status", patch.Status},
		{"due_date", patch.DueDate},
		{"note", patch.Note},
	} {
		if !f.opt.Set {
			continue
		}
		sets = append(sets, f.col+" = ?")
		args = append(args, f.opt.Value)
	}
	if len(sets) == 0 {
		return ErrNothingToUpdate
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	if _, err := s.db.Execute(ctx,
		"UPDATE follow_ups SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	); err != nil {
		return fmt.Errorf("updating follow-up: %w", err)
	}
	return nil
}
