// Package api implements the desk's JSON HTTP endpoints.
//
// Every handler delegates to the store, settings and whatsapp packages and
// reports failures through one mapping:
//
//	auth.ErrUnauthorized          401 Unauthorized
//	auth.ErrForbidden             403 Forbidden
//	auth.ErrInvalidCredentials    401
//	auth.ErrWeakPassword          400
//	*store.DuplicateError         409, message names the colliding field
//	db.ErrForeignKey              400 Profile ID not found
//	settings.ErrUnavailable       503
//	store.ErrNotFound             404
//	anything else                 500 Server error (cause logged, not returned)
//
// Routes other than login, logout and /uploads/{filename} require a session
// cookie. Uploaded files are public so WhatsApp can fetch them. Writes are
// admin-only.
package api
