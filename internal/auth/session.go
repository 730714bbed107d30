// ABOUTME: Session cookie contents and the two codecs that carry them
// ABOUTME: SignedCodec is an HS256 JWT; LegacyCodec is the unsigned base64 JSON form

package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the privilege level of a staff account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// SessionTTL is how long an issued session cookie stays valid.
const SessionTTL = 7 * 24 * time.Hour

// Session is the full server-side view of a logged-in request. There is no
// session store: the cookie carries all of it.
type Session struct {
	UserID int64 `json:"userId"`
	Role   Role  `json:"role"`
}

// valid reports whether a decoded session may be trusted.
func (s Session) valid() bool {
	return s.UserID > 0 && s.Role.Valid()
}

// IsAdmin reports whether the session holds the admin role.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// ErrInvalidSession is returned by codecs for any undecodable cookie value.
var ErrInvalidSession = errors.New("invalid session")

// Codec turns a Session into a cookie value and back.
type Codec interface {
	Encode(s Session) (string, error)
	Decode(value string) (Session, error)
}

// LegacyCodec is base64(JSON({userId, role})). Anyone can forge it; it exists
// for deployments that have not configured a session secret.
type LegacyCodec struct{}

// Encode implements Codec.
func (LegacyCodec) Encode(s Session) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode implements Codec.
// Cookies set by earlier deployments arrive percent-encoded ("%3D" padding).
func (LegacyCodec) Decode(value string) (Session, error) {
	if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !s.valid() {
		return Session{}, ErrInvalidSession
	}
	return s, nil
}

// SignedCodec carries the session as an HS256 JWT.
type SignedCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedCodec creates a codec signing with secret.
func NewSignedCodec(secret []byte) *SignedCodec {
	return &SignedCodec{secret: secret, ttl: SessionTTL, now: time.Now}
}

type sessionClaims struct {
	UserID int64 `json:"userId"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

// Encode implements Codec.
func (c *SignedCodec) Encode(s Session) (string, error) {
	now := c.now()
	claims := sessionClaims{
		UserID: s.UserID,
		Role:   s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode implements Codec.
func (c *SignedCodec) Decode(value string) (Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid {
		return Session{}, ErrInvalidSession
	}

	s := Session{UserID: claims.UserID, Role: claims.Role}
	if !s.valid() {
		return Session{}, ErrInvalidSession
	}
	return s, nil
}
