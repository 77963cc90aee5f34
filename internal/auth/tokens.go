// Package auth issues and verifies signed account tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Action names the operation a token authorizes.
type Action string

const (
	ActionSession     Action = "session"
	ActionConfirm     Action = "confirm"
	ActionReset       Action = "reset"
	ActionChangeEmail Action = "change_email"
)

// DefaultExpiration is the lifetime of confirm, reset and change_email tokens.
const DefaultExpiration = time.Hour

// Session lifetimes.
const (
	SessionTTL    = 24 * time.Hour
	RememberMeTTL = 30 * 24 * time.Hour
)

const issuer = "quill"

// ErrInvalidToken covers every verification failure. Callers must not
// distinguish between bad signatures, expiry and wrong actions.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed payload.
type Claims struct {
	Action   Action `json:"action"`
	UserID   uint   `json:"user_id"`
	NewEmail string `json:"new_email,omitempty"`
	jwt.RegisteredClaims
}

// Signer signs and parses tokens with the application secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer keyed with secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret key not configured")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of s that reads the time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// Sign issues a token for claims valid for ttl. A zero ttl means DefaultExpiration.
func (s *Signer) Sign(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.Action, err)
	}
	return signed, nil
}

// SessionToken issues a login token.
func (s *Signer) SessionToken(userID uint, rememberMe bool) (string, error) {
	ttl := SessionTTL
	if rememberMe {
		ttl = RememberMeTTL
	}
	return s.Sign(Claims{Action: ActionSession, UserID: userID}, ttl)
}

// ConfirmationToken issues an account confirmation token.
func (s *Signer) ConfirmationToken(userID uint, ttl time.Duration) (string, error) {
	return s.Sign(Claims{Action: ActionConfirm, UserID: userID}, ttl)
}

// ResetToken issues a password reset token.
func (s *Signer) ResetToken(userID uint, ttl time.Duration) (string, error) {
	return s.Sign(Claims{Action: ActionReset, UserID: userID}, ttl)
}

// EmailChangeToken issues a token authorizing userID to move to newEmail.
func (s *Signer) EmailChangeToken(userID uint, newEmail string, ttl time.Duration) (string, error) {
	return s.Sign(Claims{Action: ActionChangeEmail, UserID: userID, NewEmail: newEmail}, ttl)
}

// Parse verifies raw and checks that it was issued for action.
func (s *Signer) Parse(raw string, action Action) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Action != action || claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
