// ABOUTME: Tests for the viewer menu filter and link visibility
// ABOUTME: Fallback to defaults, order-preserving writes, and the missing-table path

package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/horoscope-desk/internal/auth"
	"github.com/2389/horoscope-desk/internal/db"
)

func newTestService(t *testing.T) (*Service, *db.Gateway) {
	t.Helper()
	g := db.New(db.Options{Backend: db.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "test.db")})
	t.Cleanup(func() { _ = g.Close() })
	return New(g, nil), g
}

// failingExecutor fails every statement.
type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, string, ...any) (db.Result, error) {
	return db.Result{}, errors.New("connection refused")
}

func TestAllowedMenus_DefaultsWhenUnset(t *testing.T) {
	s, _ := newTestService(t)
	menus := s.AllowedMenus(context.Background())
	assert.Equal(t, DefaultViewerMenus, menus)
	assert.Len(t, menus, 7)
}

func TestAllowedMenus_ReturnsCopy(t *testing.T) {
	s, _ := newTestService(t)
	menus := s.AllowedMenus(context.Background())
	menus[0] = "/mutated"
	assert.Equal(t, "/dashboard", DefaultViewerMenus[0])
}

func TestSetAllowedMenus_RoundTrip(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	want := []string{"/dashboard/upload", "/dashboard", "/dashboard/lookup"}
	require.NoError(t, s.SetAllowedMenus(ctx, want))
	assert.Equal(t, want, s.AllowedMenus(ctx), "order is preserved")

	require.NoError(t, s.SetAllowedMenus(ctx, []string{"/dashboard"}))
	assert.Equal(t, []string{"/dashboard"}, s.AllowedMenus(ctx), "second write replaces the first")

	require.NoError(t, s.SetAllowedMenus(ctx, nil))
	assert.Equal(t, []string{}, s.AllowedMenus(ctx), "an empty list is honored, not defaulted")
}

func TestAllowedMenus_InvalidStoredValue(t *testing.T) {
	s, g := newTestService(t)
	ctx := context.Background()

	for _, value := range []string{"", "not json", `{"a":1}`, `[1,2]`, "null"} {
		_, err := g.Execute(ctx,
			"INSERT INTO app_settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
			KeyViewerMenus, value)
		require.NoError(t, err)
		assert.Equal(t, DefaultViewerMenus, s.AllowedMenus(ctx), "value %q", value)
	}
}

func TestMissingTable(t *testing.T) {
	s, g := newTestService(t)
	ctx := context.Background()

	_, err := g.Execute(ctx, "DROP TABLE app_settings")
	require.NoError(t, err)

	assert.Equal(t, DefaultViewerMenus, s.AllowedMenus(ctx))

	err = s.SetAllowedMenus(ctx, []string{"/dashboard"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "migrate")
}

func TestUnreachableBackend(t *testing.T) {
	s := New(failingExecutor{}, nil)
	ctx := context.Background()

	assert.Equal(t, DefaultViewerMenus, s.AllowedMenus(ctx))
	assert.ErrorIs(t, s.SetAllowedMenus(ctx, []string{"/dashboard"}), ErrUnavailable)
}

func hrefs(links []Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Href
	}
	return out
}

func TestVisibleLinks(t *testing.T) {
	admin := hrefs(VisibleLinks(auth.RoleAdmin, nil))
	assert.Len(t, admin, len(Links)+2)
	assert.Contains(t, admin, SettingsLink.Href)
	assert.Equal(t, ChangePasswordLink.Href, admin[len(admin)-1])

	viewer := hrefs(VisibleLinks(auth.RoleViewer, []string{"/dashboard/upload", "/dashboard", "/dashboard/unknown", SettingsLink.Href}))
	assert.Equal(t, []string{"/dashboard", "/dashboard/upload", ChangePasswordLink.Href}, viewer,
		"catalog order wins, unknown and admin-only entries are ignored")

	none := hrefs(VisibleLinks(auth.RoleViewer, []string{}))
	assert.Equal(t, []string{ChangePasswordLink.Href}, none)
}
