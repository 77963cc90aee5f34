package models

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrPasswordNotReadable is returned when a caller asks for a user's password.
var ErrPasswordNotReadable = errors.New("password is not a readable attribute")

// Gravatar defaults.
const (
	GravatarDefaultSize   = 100
	GravatarDefaultImage  = "identicon"
	GravatarDefaultRating = "g"
)

// User is a registered account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:64;uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	RoleID       *uint     `gorm:"index" json:"role_id,omitempty"`
	Role         *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Confirmed    bool      `gorm:"not null;default:false" json:"confirmed"`
	Name         string    `gorm:"size:64" json:"name"`
	Location     string    `gorm:"size:64" json:"location"`
	AboutMe      string    `gorm:"type:text" json:"about_me"`
	MemberSince  time.Time `json:"member_since"`
	LastSeen     time.Time `json:"last_seen"`
	AvatarHash   string    `gorm:"size:32" json:"avatar_hash"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// BeforeCreate fills the timestamps and avatar hash of a new account.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	now := time.Now().UTC()
	if u.MemberSince.IsZero() {
		u.MemberSince = now
	}
	if u.LastSeen.IsZero() {
		u.LastSeen = now
	}
	if u.AvatarHash == "" && u.Email != "" {
		u.AvatarHash = AvatarHash(u.Email)
	}
	return nil
}

// Password always fails; only the hash is stored.
func (u *User) Password() (string, error) {
	return "", ErrPasswordNotReadable
}

// SetPassword stores a salted bcrypt hash of password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword reports whether password matches the stored hash.
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetEmail changes the address and recomputes the avatar hash.
func (u *User) SetEmail(email string) {
	u.Email = email
	u.AvatarHash = AvatarHash(email)
}

// Can reports whether the user's role grants every bit of p.
func (u *User) Can(p Permission) bool {
	return u != nil && u.Role.Has(p)
}

// IsAdministrator is Can(PermAdminister).
func (u *User) IsAdministrator() bool {
	return u.Can(PermAdminister)
}

// IsAuthenticated is true for any loaded account.
func (u *User) IsAuthenticated() bool {
	return u != nil
}

// Ping records activity.
func (u *User) Ping(now time.Time) {
	u.LastSeen = now.UTC()
}

// Gravatar builds the avatar URL with the default image and rating.
func (u *User) Gravatar(secure bool, size int) string {
	return GravatarURL(secure, u.AvatarHash, u.Email, size, GravatarDefaultImage, GravatarDefaultRating)
}

// AvatarHash is the lowercase hex MD5 of the lowercased email.
func AvatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

// GravatarURL returns the gravatar image URL for hash, falling back to the
// hash of email when hash is empty. Zero values pick the defaults.
func GravatarURL(secure bool, hash, email string, size int, def, rating string) string {
	base := "http://www.gravatar.com/avatar"
	if secure {
		base = "https://secure.gravatar.com/avatar"
	}
	if hash == "" {
		hash = AvatarHash(email)
	}
	if size <= 0 {
		size = GravatarDefaultSize
	}
	if def == "" {
		def = GravatarDefaultImage
	}
	if rating == "" {
		rating = GravatarDefaultRating
	}
	return fmt.Sprintf("%s/%s?s=%d&d=%s&r=%s", base, hash, size, def, rating)
}
