package models

import (
	"github.com/google/uuid"
)

// UserBasic is the display projection of a user owned by the auth service.
// It is never persisted locally.
type UserBasic struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email,omitempty"`
	Picture   string    `json:"picture,omitempty"`
}
