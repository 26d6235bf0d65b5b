package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account created on first sign-in with the identity provider.
type User struct {
	ID        uuid.UUID `json:"id"`
	Subject   string    `json:"-"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the optional fields of a profile edit.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
}

// Identity is what a verified identity-provider token says about its holder.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}
