package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	DefaultNickname = "匿名"
	DefaultAvatar   = "images/default-avatar.png"
)

// User is an account known to the server. Email is nullable so that
// firebase-only or legacy rows without an address do not collide.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        *string   `json:"email" gorm:"uniqueIndex"`
	Nickname     string    `json:"nickname" gorm:"not null;default:匿名"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash string    `json:"-"`
	FirebaseUID  *string   `json:"-" gorm:"uniqueIndex"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EmailValue returns the email or "".
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// Avatar returns the avatar url with the default applied.
func (u *User) Avatar() string {
	if u.AvatarURL == "" {
		return DefaultAvatar
	}
	return u.AvatarURL
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Nickname string `json:"nickname" validate:"omitempty,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
