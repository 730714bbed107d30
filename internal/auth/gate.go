// ABOUTME: Session and authorization gate: login, cookie issue/read, role checks
// ABOUTME: Passwords are verified with bcrypt; unknown emails still pay the hash cost

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/horoscope-desk/internal/store"
)

// CookieName is the session cookie.
const CookieName = "horoscope_session"

// MinPasswordLength is the shortest accepted new password.
const MinPasswordLength = 6

// Gate errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrWeakPassword       = fmt.Errorf("new password must be at least %d characters", MinPasswordLength)
)

// dummyHash is compared against when no account matches, so a lookup miss
// costs the same as a wrong password.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// UserStore is the account persistence the gate needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// GateOptions configures a Gate.
type GateOptions struct {
	// SecureCookie sets the Secure attribute on issued cookies.
	SecureCookie bool
	Logger       *slog.Logger
}

// Gate binds requests to sessions.
type Gate struct {
	users  UserStore
	codec  Codec
	secure bool
	logger *slog.Logger
}

// NewGate creates a Gate.
func NewGate(users UserStore, codec Codec, opts GateOptions) *Gate {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		users:  users,
		codec:  codec,
		secure: opts.SecureCookie,
		logger: logger.With("component", "auth"),
	}
}

// HashPassword hashes a password at bcrypt's default cost (10).
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login verifies credentials and returns the session to issue. Unknown email
// and wrong password both return ErrInvalidCredentials.
func (g *Gate) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := g.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return Session{}, fmt.Errorf("looking up account: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	role := Role(user.Role)
	if !role.Valid() {
		g.logger.Warn("account has unknown role", "user_id", user.ID, "role", user.Role)
		return Session{}, ErrInvalidCredentials
	}
	return Session{UserID: user.ID, Role: role}, nil
}

// IssueCookie writes the session cookie.
func (g *Gate) IssueCookie(w http.ResponseWriter, s Session) error {
	value, err := g.codec.Encode(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// CurrentSession decodes the request's session cookie. An absent or
// malformed cookie reports false; it never fails.
func (g *Gate) CurrentSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Session{}, false
	}
	s, err := g.codec.Decode(c.Value)
	if err != nil {
		g.logger.Debug("ignoring invalid session cookie", "error", err)
		return Session{}, false
	}
	return s, true
}

// RequireSession returns the current session or ErrUnauthorized.
func (g *Gate) RequireSession(r *http.Request) (Session, error) {
	s, ok := g.CurrentSession(r)
	if !ok {
		return Session{}, ErrUnauthorized
	}
	return s, nil
}

// RequireRole returns ErrForbidden unless the session holds role.
func (g *Gate) RequireRole(s Session, role Role) error {
	if s.Role != role {
		return ErrForbidden
	}
	return nil
}

// ChangePassword re-verifies current before storing next. Any role may change
// its own password.
func (g *Gate) ChangePassword(ctx context.Context, s Session, current, next string) error {
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}

	user, err := g.users.GetUser(ctx, s.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := g.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	g.logger.Info("password changed", "user_id", user.ID)
	return nil
}

// Logout expires the session cookie. Calling it without a session is fine.
func (g *Gate) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
