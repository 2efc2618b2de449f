package models

import "time"

// Account is a credential record owned by the auth provider.
type Account struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// UserProfile is the application-side profile written after sign-up.
type UserProfile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}
