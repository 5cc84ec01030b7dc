package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the shop owner's profile
type User struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	FullName  *string    `json:"full_name"`
	AvatarURL *string    `json:"avatar_url"`
	Email     *string    `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// ProfileUpdate holds the editable profile fields. Id and email are never changed.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// DisplayName prefers the full name over the username
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}
