// ABOUTME: Tests for the gateway lifecycle against a real embedded database and sqlmock
// ABOUTME: Covers bootstrap idempotence, upserts, constraint classification, and metrics

package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g := New(Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "horoscope.db")})
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func addRegistration(t *testing.T, g *Gateway, id, name, role string) {
	t.Helper()
	_, err := g.Execute(context.Background(),
		"INSERT INTO registrations (registration_id, name, role) VALUES (?, ?, ?)", id, name, role)
	require.NoError(t, err)
}

func TestGateway_LazyOpenCreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "horoscope.db")
	g := New(Options{Backend: BackendSQLite, SQLitePath: dbPath})
	defer g.Close()

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "file must not exist before first use")

	_, err = g.Execute(context.Background(), "SELECT 1 AS one")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestGateway_BootstrapSeedsOneAdmin(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "horoscope.db")

	for i := 0; i < 2; i++ {
		g := New(Options{Backend: BackendSQLite, SQLitePath: dbPath})
		require.NoError(t, g.Ping(ctx))
		require.NoError(t, g.Close())
	}

	g := New(Options{Backend: BackendSQLite, SQLitePath: dbPath})
	defer g.Close()

	res, err := g.Execute(ctx, "SELECT email, password_hash, role, name FROM users")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	admin := res.Rows[0]
	assert.Equal(t, DefaultAdminEmail, admin.String("email"))
	assert.Equal(t, "admin", admin.String("role"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.String("password_hash")), []byte(DefaultAdminPassword)))

	cost, err := bcrypt.Cost([]byte(admin.String("password_hash")))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}

func TestGateway_FailedInitIsRetried(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	blocker := filepath.Join(base, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	g := New(Options{Backend: BackendSQLite, SQLitePath: filepath.Join(blocker, "horoscope.db")})
	defer g.Close()

	_, err := g.Execute(ctx, "SELECT 1")
	require.Error(t, err)

	require.NoError(t, os.Remove(blocker))
	_, err = g.Execute(ctx, "SELECT 1")
	assert.NoError(t, err, "a failed initialization must not be cached")
}

func TestGateway_ReadAndWriteResults(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	res, err := g.Execute(ctx, "SELECT * FROM registrations WHERE registration_id = ?", "none")
	require.NoError(t, err)
	assert.False(t, res.IsWrite())
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)

	res, err = g.Execute(ctx,
		"INSERT INTO registrations (registration_id, name, role) VALUES (?, ?, ?)", "A1", "Asha", "female")
	require.NoError(t, err)
	require.True(t, res.IsWrite())
	assert.Positive(t, res.InsertedID())
	assert.Equal(t, int64(1), res.AffectedRows())

	res, err = g.Execute(ctx, "UPDATE registrations SET notes = ?, updated_at = CURRENT_TIMESTAMP WHERE registration_id = ?", "hi", "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.InsertedID())
	assert.Equal(t, int64(1), res.AffectedRows())

	res, err = g.Execute(ctx, "SELECT name, notes FROM registrations WHERE registration_id = ?", "A1")
	require.NoError(t, err)
	row, ok := res.First()
	require.True(t, ok)
	assert.Equal(t, "Asha", row.String("name"))
	assert.Equal(t, "hi", row.String("notes"))
}

func TestGateway_SettingsUpsert(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	upsert := "INSERT INTO app_settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)"
	_, err := g.Execute(ctx, upsert, "viewer_allowed_menus", `["/dashboard"]`)
	require.NoError(t, err)
	_, err = g.Execute(ctx, upsert, "viewer_allowed_menus", `["/dashboard/lookup"]`)
	require.NoError(t, err)

	res, err := g.Execute(ctx, "SELECT value FROM app_settings WHERE `key` = ?", "viewer_allowed_menus")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, `["/dashboard/lookup"]`, res.Rows[0].String("value"))
}

func TestGateway_ShareUpsertKeepsExistingValues(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)
	addRegistration(t, g, "A1", "Asha", "female")
	addRegistration(t, g, "B2", "Bala", "male")

	upsert := "INSERT INTO horoscope_shares (sender_registration_id, recipient_registration_id, shared_via, notes) VALUES (?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE shared_at = CURRENT_TIMESTAMP, shared_via = COALESCE(VALUES(shared_via), shared_via), notes = COALESCE(VALUES(notes), notes)"

	_, err := g.Execute(ctx, upsert, "A1", "B2", "whatsapp", "first")
	require.NoError(t, err)
	_, err = g.Execute(ctx, upsert, "A1", "B2", nil, nil)
	require.NoError(t, err)

	res, err := g.Execute(ctx, "SELECT shared_via, notes FROM horoscope_shares")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "whatsapp", res.Rows[0].String("shared_via"))
	assert.Equal(t, "first", res.Rows[0].String("notes"))
}

func TestGateway_ConstraintClassification(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Execute(ctx,
		"INSERT INTO registrations (registration_id, name, role, phone) VALUES (?, ?, ?, ?)", "A1", "Asha", "female", "98450")
	require.NoError(t, err)

	_, err = g.Execute(ctx,
		"INSERT INTO registrations (registration_id, name, role, phone) VALUES (?, ?, ?, ?)", "A2", "Anu", "female", "98450")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Equal(t, "phone", DuplicateField(err, "registration_id", "phone", "whatsapp"))

	var ce *ConstraintError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, BackendSQLite, ce.Backend)
	assert.Contains(t, ce.Error(), "registrations.phone")

	_, err = g.Execute(ctx,
		"INSERT INTO horoscope_shares (sender_registration_id, recipient_registration_id) VALUES (?, ?)", "A1", "ZZ9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForeignKey))
	assert.False(t, errors.Is(err, ErrDuplicateKey))
	assert.Empty(t, DuplicateField(err, "registration_id"))
}

func TestGateway_CloseThenReopen(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)
	addRegistration(t, g, "A1", "Asha", "female")

	require.NoError(t, g.Close())
	require.NoError(t, g.Close(), "closing twice is a no-op")

	res, err := g.Execute(ctx, "SELECT COUNT(*) AS n FROM registrations")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows[0].Int64("n"))
}

func TestGateway_MissingTable(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Execute(ctx, "DROP TABLE app_settings")
	require.NoError(t, err)

	_, err = g.Execute(ctx, "SELECT value FROM app_settings WHERE `key` = ?", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestGateway_MySQLPassesStatementsThrough(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	g := NewFromDB(BackendMySQL, sqlDB, Options{})
	defer g.Close()
	ctx := context.Background()

	query := "SELECT value FROM app_settings WHERE `key` = ?"
	mock.ExpectQuery(query).
		WithArgs("viewer_allowed_menus").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`["/dashboard"]`)))

	res, err := g.Execute(ctx, query, "viewer_allowed_menus")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, `["/dashboard"]`, res.Rows[0]["value"], "text columns arrive as strings")

	insert := "INSERT INTO follow_ups (registration_id, due_date, note) VALUES (?, CURDATE(), ?)"
	mock.ExpectExec(insert).
		WithArgs("A1", "call back").
		WillReturnResult(sqlmock.NewResult(42, 1))

	res, err = g.Execute(ctx, insert, "A1", "call back")
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.InsertedID())
	assert.Equal(t, int64(1), res.AffectedRows())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_MySQLConstraintErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	g := NewFromDB(BackendMySQL, sqlDB, Options{})
	defer g.Close()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO registrations").WillReturnError(&mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry '98450' for key 'registrations.whatsapp_number'",
	})
	_, err = g.Execute(ctx, "INSERT INTO registrations (registration_id, whatsapp_number) VALUES (?, ?)", "A2", "98450")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Equal(t, "whatsapp", DuplicateField(err, "registration_id", "phone", "whatsapp"))

	mock.ExpectExec("INSERT INTO horoscope_shares").WillReturnError(&mysql.MySQLError{
		Number:  1452,
		Message: "Cannot add or update a child row: a foreign key constraint fails",
	})
	_, err = g.Execute(ctx, "INSERT INTO horoscope_shares (sender_registration_id) VALUES (?)", "ZZ9")
	assert.True(t, errors.Is(err, ErrForeignKey))

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
	_, err = g.Execute(ctx, "SELECT 1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDuplicateKey))
	assert.False(t, errors.Is(err, ErrForeignKey))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := New(Options{
		Backend:    BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "horoscope.db"),
		Metrics:    NewMetrics(reg),
	})
	defer g.Close()
	ctx := context.Background()

	_, err := g.Execute(ctx, "SELECT 1")
	require.NoError(t, err)
	addRegistration(t, g, "A1", "Asha", "female")
	_, err = g.Execute(ctx, "INSERT INTO registrations (registration_id, name, role) VALUES ('A1', 'x', 'male')")
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "horoscope_db_statements_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			for _, lp := range m.GetLabel() {
				key += lp.GetName() + "=" + lp.GetValue() + ","
			}
			counts[key] = m.GetCounter().GetValue()
		}
	}

	assert.Equal(t, 1.0, counts["backend=sqlite,kind=read,outcome=ok,"])
	assert.Equal(t, 1.0, counts["backend=sqlite,kind=write,outcome=ok,"])
	assert.Equal(t, 1.0, counts["backend=sqlite,kind=write,outcome=duplicate_key,"])
}
