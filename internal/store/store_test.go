// ABOUTME: Tests for the business data layer against a real embedded database
// ABOUTME: Covers profile uniqueness, patches, shares, reminders, send logs and lookup

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/horoscope-desk/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	g := db.New(db.Options{Backend: db.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "test.db")})
	t.Cleanup(func() { _ = g.Close() })
	return New(g)
}

func mustCreate(t *testing.T, s *Store, in NewRegistration) int64 {
	t.Helper()
	id, err := s.CreateRegistration(context.Background(), in)
	require.NoError(t, err)
	return id
}

func TestCreateAndGetRegistration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, NewRegistration{
		RegistrationID: "  A100 ",
		Name:           "Asha",
		Role:           "female",
		Phone:          " 9845012345 ",
		WhatsAppNumber: "+91 98450-12345",
		Address:        "  ",
	})
	assert.Positive(t, id)

	reg, err := s.GetRegistrationByProfileID(ctx, "A100")
	require.NoError(t, err)
	assert.Equal(t, id, reg.ID)
	assert.Equal(t, "Asha", reg.Name)
	require.NotNil(t, reg.Phone)
	assert.Equal(t, "9845012345", *reg.Phone)
	require.NotNil(t, reg.WhatsAppNumber)
	assert.Equal(t, "919845012345", *reg.WhatsAppNumber)
	assert.Nil(t, reg.Address, "blank address stored as NULL")
	assert.Nil(t, reg.Notes)

	byID, err := s.GetRegistration(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A100", byID.RegistrationID)

	_, err = s.GetRegistrationByProfileID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRegistration_Duplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, NewRegistration{RegistrationID: "A1", Name: "Asha", Role: "female", Phone: "111", WhatsAppNumber: "222"})

	tests := []struct {
		name  string
		in    NewRegistration
		field string
	}{
		{"profile id", NewRegistration{RegistrationID: "A1", Name: "X", Role: "male"}, FieldRegistrationID},
		{"phone", NewRegistration{RegistrationID: "A2", Name: "X", Role: "male", Phone: "111"}, FieldPhone},
		{"whatsapp", NewRegistration{RegistrationID: "A3", Name: "X", Role: "male", WhatsAppNumber: "2-2-2"}, FieldWhatsApp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateRegistration(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, db.ErrDuplicateKey))

			var dup *DuplicateError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tt.field, dup.Field)
		})
	}
}

func TestUpdateRegistration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, NewRegistration{RegistrationID: "A1", Name: "Asha", Role: "female", Phone: "111", Notes: "first"})
	mustCreate(t, s, NewRegistration{RegistrationID: "B1", Name: "Bala", Role: "male", Phone: "999"})

	var patch RegistrationPatch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Asha K","notes":null,"phone":"","whatsapp_number":"98-450"}`), &patch))
	require.NoError(t, s.UpdateRegistration(ctx, id, patch))

	reg, err := s.GetRegistration(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", reg.Name)
	assert.Equal(t, "A1", reg.RegistrationID, "absent keys are untouched")
	assert.Nil(t, reg.Notes)
	assert.Nil(t, reg.Phone)
	require.NotNil(t, reg.WhatsAppNumber)
	assert.Equal(t, "98450", *reg.WhatsAppNumber)

	err = s.UpdateRegistration(ctx, id, RegistrationPatch{Phone: Some("999")})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, FieldPhone, dup.Field)

	err = s.UpdateRegistration(ctx, id, RegistrationPatch{RegistrationID: Some("A1")})
	assert.NoError(t, err, "a row does not collide with itself")

	assert.ErrorIs(t, s.UpdateRegistration(ctx, id, RegistrationPatch{}), ErrNothingToUpdate)
}

func TestListRegistrations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 35; i++ {
		mustCreate(t, s, NewRegistration{RegistrationID: fmt.Sprintf("P%03d", i), Name: fmt.Sprintf("Person %d", i), Role: "male"})
	}
	mustCreate(t, s, NewRegistration{RegistrationID: "Z1", Name: "Zara", Role: "female", Phone: "5551234"})

	all, err := s.ListRegistrations(ctx, RegistrationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, ListLimit)
	assert.Equal(t, "P000", all[0].RegistrationID)

	byPrefix, err := s.ListRegistrations(ctx, RegistrationFilter{Prefix: "P01"})
	require.NoError(t, err)
	assert.Len(t, byPrefix, 10)

	bySearch, err := s.ListRegistrations(ctx, RegistrationFilter{Search: "1234"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "Z1", bySearch[0].RegistrationID)

	none, err := s.ListRegistrations(ctx, RegistrationFilter{Search: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSetHoroscopePath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, NewRegistration{RegistrationID: "A1", Name: "Asha", Role: "female"})

	found, err := s.SetHoroscopePath(ctx, "A1", "/uploads/a.pdf")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.SetHoroscopePath(ctx, "nope", "/uploads/b.pdf")
	require.NoError(t, err)
	assert.False(t, found)

	reg, err := s.GetRegistrationByProfileID(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, reg.HoroscopePath)
	assert.Equal(t, "/uploads/a.pdf", *reg.HoroscopePath)
}

func TestRecordShare(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, NewRegistration{RegistrationID: "A1", Name: "Asha", Role: "female"})
	mustCreate(t, s, NewRegistration{RegistrationID: "B1", Name: "Bala", Role: "male"})

	via := SharedViaWhatsApp
	notes := "sent pdf"
	require.NoError(t, s.RecordShare(ctx, NewShare{SenderRegistrationID: "A1", RecipientRegistrationID: "B1", SharedVia: &via, Notes: &notes}))
	require.NoError(t, s.RecordShare(ctx, NewShare{SenderRegistrationID: "A1", RecipientRegistrationID: "B1"}))

	res, err := s.db.Execute(ctx, "SELECT shared_via, notes FROM horoscope_shares")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "whatsapp", res.Rows[0].String("shared_via"))
	assert.Equal(t, "sent pdf", res.Rows[0].String("notes"))

	err = s.RecordShare(ctx, NewShare{SenderRegistrationID: "A1", RecipientRegistrationID: "NOPE"})
	assert.ErrorIs(t, err, db.ErrForeignKey)
}

func TestFollowUps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, NewRegistration{RegistrationID: "A1", Name: "Asha", Role: "female"})

	today := time.Now().UTC().Format(time.DateOnly)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)

	todayID, err := s.CreateFollowUp(ctx, NewFollowUp{RegistrationID: "A1", DueDate: today, Note: "call family", CreatedBy: 1})
	require.NoError(t, err)
	_, err = s.CreateFollowUp(ctx, NewFollowUp{RegistrationID: "UNKNOWN", DueDate: tomorrow, Note: "later"})
	require.NoError(t, err)

	all, err := s.ListFollowUps(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, today, all[0].DueDate)
	require.NotNil(t, all[0].RegistrationName)
	assert.Equal(t, "Asha", *all[0].RegistrationName)
	assert.Nil(t, all[1].RegistrationName, "left join keeps reminders for unknown profiles")

	due, err := s.FollowUpsDueToday(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, todayID, due[0].ID)
	assert.Equal(t, FollowUpPending, due[0].Status)

	require.NoError(t, s.UpdateFollowUp(ctx, todayID, FollowUpPatch{Status: Some(FollowUpDone)}))
	due, err = s.FollowUpsDueToday(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.ErrorIs(t, s.UpdateFollowUp(ctx, todayID, FollowUpPatch{}), ErrNothingToUpdate)
}

func TestLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, NewRegistration{RegistrationID: "A1", Name: "Asha", Role: "female", WhatsAppNumber: "9845012345"})
	mustCreate(t, s, NewRegistration{RegistrationID: "B1", Name: "Bala", Role: "male"})

	require.NoError(t, s.RecordHoroscopeSend(ctx, "B1", "919845012345", "/uploads/b1.pdf"))
	require.NoError(t, s.RecordProfileDetailSend(ctx, "B1", "917000000000", []string{"name", "phone"}))

	res, err := s.Lookup(ctx, "B1")
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "Bala", res.Profile.Name)

	require.Len(t, res.HoroscopeSentTo, 1)
	sent := res.HoroscopeSentTo[0]
	assert.Equal(t, "919845012345", sent.RecipientWhatsApp)
	require.NotNil(t, sent.MatchRegistrationID, "prefixed number matches the local form")
	assert.Equal(t, "A1", *sent.MatchRegistrationID)
	assert.Equal(t, "Asha", *sent.MatchName)

	require.Len(t, res.ProfileDetailsSentTo, 1)
	details := res.ProfileDetailsSentTo[0]
	assert.Nil(t, details.MatchRegistrationID)
	assert.JSONEq(t, `["name","phone"]`, string(details.FieldsSent))

	missing, err := s.Lookup(ctx, "ZZ")
	require.NoError(t, err)
	assert.Nil(t, missing.Profile)
	assert.Empty(t, missing.HoroscopeSentTo)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin, err := s.GetUserByEmail(ctx, db.DefaultAdminEmail)
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)

	_, err = s.GetUserByEmail(ctx, "ADMIN@LOCAL")
	assert.ErrorIs(t, err, ErrNotFound, "email match is exact")

	created, err := s.UpsertUser(ctx, "viewer@local", "Viewer", "viewer", "hash-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.UpsertUser(ctx, "viewer@local", "Viewer Two", "viewer", "hash-2")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := s.GetUserByEmail(ctx, "viewer@local")
	require.NoError(t, err)
	assert.Equal(t, "Viewer Two", u.Name)
	assert.Equal(t, "hash-2", u.PasswordHash)

	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "hash-3"))
	u, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-3", u.PasswordHash)

	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, 9999, "x"), ErrNotFound)
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	var patch FollowUpPatch
	require.NoError(t, json.Unmarshal([]byte(`{"status":"done","note":null}`), &patch))

	assert.Equal(t, Optional{Set: true, Value: "done"}, patch.Status)
	assert.Equal(t, Optional{Set: true, Null: true}, patch.Note)
	assert.Equal(t, Optional{}, patch.DueDate)

	var reg RegistrationPatch
	require.NoError(t, json.Unmarshal([]byte(`{"phone":9845012345}`), &reg))
	assert.Equal(t, "9845012345", reg.Phone.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"phone":{"x":1}}`), &reg))
}

func TestListFollowUps_MySQLDialect(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	g := db.NewFromDB(db.BackendMySQL, sqlDB, db.Options{})
	defer g.Close()
	s := New(g)

	due := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`f\.due_date = CURDATE\(\) AND f\.status = \?`).
		WithArgs(FollowUpPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_id", "share_id", "due_date", "note", "status", "created_at", "registration_name", "registration_role"}).
			AddRow(int64(7), []byte("A1"), nil, due, []byte("call"), []byte("pending"), due, []byte("Asha"), []byte("female")))

	list, err := s.FollowUpsDueToday(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(7), list[0].ID)
	assert.Equal(t, "2026-10-14", list[0].DueDate)
	assert.Nil(t, list[0].ShareID)
	assert.Equal(t, "Asha", *list[0].RegistrationName)

	require.NoError(t, mock.ExpectationsWereMet())
}
