package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trip-expenses/internal/models"
)

// ErrInvalidToken is returned for tokens that are malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid session token")

// Session is the authenticated identity carried in the session cookie.
type Session struct {
	UserID    int64
	Name      string
	Role      models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Can implements Authorizer.
func (s *Session) Can(p Permission) bool {
	if s == nil {
		return false
	}
	return RoleCan(s.Role, p)
}

type sessionClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HMAC-signed session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a Signer. ttl is the lifetime of issued tokens.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for user.
func (s *Signer) Issue(user *models.User) (string, *Session, error) {
	now := s.now()
	sess := &Session{
		UserID:    user.ID,
		Name:      user.Name,
		Role:      user.Role,
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}
	return s.sign(sess)
}

// Renew re-signs an existing session with a fresh expiry.
func (s *Signer) Renew(sess *Session) (string, *Session, error) {
	now := s.now()
	renewed := *sess
	renewed.IssuedAt = now.Truncate(time.Second)
	renewed.ExpiresAt = now.Add(s.ttl).Truncate(time.Second)
	return s.sign(&renewed)
}

func (s *Signer) sign(sess *Session) (string, *Session, error) {
	claims := sessionClaims{
		Name: sess.Name,
		Role: string(sess.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(sess.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return token, sess, nil
}

// Verify parses token and returns the session it carries.
func (s *Signer) Verify(token string) (*Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidToken
	}
	sess := &Session{
		UserID:    id,
		Name:      claims.Name,
		Role:      models.ParseRole(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	return sess, nil
}

// NeedsRenewal reports whether sess is past the halfway point of its lifetime.
func (s *Signer) NeedsRenewal(sess *Session) bool {
	return sess.ExpiresAt.Sub(s.now()) < s.ttl/2
}
