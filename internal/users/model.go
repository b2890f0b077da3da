package users

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	DisplayName    string    `json:"display_name"`
	Timezone       string    `json:"timezone"`
	PreferredModel string    `json:"preferred_model,omitempty"`
	ChatJID        string    `json:"chat_jid,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Location resolves the user's IANA timezone, falling back to UTC when the
// timezone is missing or unknown.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type UpdateProfileRequest struct {
	DisplayName    *string `json:"display_name" validate:"omitempty,min=1,max=255"`
	Timezone       *string `json:"timezone" validate:"omitempty,timezone"`
	PreferredModel *string `json:"preferred_model" validate:"omitempty,max=100"`
	ChatJID        *string `json:"chat_jid" validate:"omitempty,max=255"`
}
