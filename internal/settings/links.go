// ABOUTME: Dashboard navigation catalog and per-role link visibility
// ABOUTME: Admins see everything; viewers see the catalog filtered by the allow-list

package settings

import "github.com/2389/horoscope-desk/internal/auth"

// Link is one dashboard navigation entry.
type Link struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// Links is the dashboard catalog in display order.
var Links = []Link{
	{Href: "/dashboard", Label: "Home"},
	{Href: "/dashboard/lookup", Label: "Search"},
	{Href: "/dashboard/registrations", Label: "Profiles"},
	{Href: "/dashboard/record-share", Label: "Add share"},
	{Href: "/dashboard/follow-ups", Label: "Reminders"},
	{Href: "/dashboard/upload", Label: "Upload horoscope"},
	{Href: "/dashboard/send-profile-details", Label: "Send details"},
}

// SettingsLink is shown to admins only and is never configurable.
var SettingsLink = Link{Href: "/dashboard/settings", Label: "Settings"}

// ChangePasswordLink is shown to every role.
var ChangePasswordLink = Link{Href: "/dashboard/change-password", Label: "Change password"}

// VisibleLinks returns the navigation for role. Identifiers in allowed that
// are not in the catalog are ignored.
func VisibleLinks(role auth.Role, allowed []string) []Link {
	out := make([]Link, 0, len(Links)+2)
	if role == auth.RoleAdmin {
		out = append(out, Links...)
		out = append(out, SettingsLink)
	} else {
		permitted := make(map[string]bool, len(allowed))
		for _, href := range allowed {
			permitted[href] = true
		}
		for _, l := range Links {
			if permitted[l.Href] {
				out = append(out, l)
			}
		}
	}
	return append(out, ChangePasswordLink)
}
