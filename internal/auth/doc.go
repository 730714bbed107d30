// Package auth binds HTTP requests to a staff identity and role.
//
// # Sessions
//
// There is no server-side session store. The horoscope_session cookie holds
// the whole Session (user id and role) for seven days:
//
//   - SignedCodec: an HS256 JWT, used whenever a session secret is configured.
//   - LegacyCodec: base64 of the JSON object, kept for installs without a
//     secret. It can be forged by anyone who can set a cookie.
//
// A cookie that fails to decode, or decodes to a non-positive user id or an
// unknown role, is treated exactly like no cookie.
//
// # Gate
//
// Gate.Login checks credentials with bcrypt and never says whether the email
// or the password was wrong. RequireAuth and RequireAdmin wrap handlers; the
// session is then available through FromContext.
//
// Roles:
//
//   - admin: everything, including profile edits, shares, sends and settings
//   - viewer: read-mostly, limited to the menus an admin allows
package auth
