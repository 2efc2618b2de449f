package models

import "time"

// Listing is a pet offered for adoption.
type Listing struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Species     string     `json:"species"`
	Breed       string     `json:"breed"`
	Age         string     `json:"age"`
	Location    string     `json:"location"`
	Gender      string     `json:"gender"`
	ImageURL    string     `json:"image_url"`
	Description string     `json:"description"`
	OwnerID     string     `json:"owner_id"`
	OwnerEmail  string     `json:"owner_email"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// ListingForm is the user-entered data for a new listing. Values are taken
// as entered; whitespace-only input counts as filled.
type ListingForm struct {
	Name        string `json:"name" validate:"required"`
	Species     string `json:"species" validate:"required"`
	Breed       string `json:"breed"`
	Age         string `json:"age"`
	Gender      string `json:"gender"`
	Location    string `json:"location" validate:"required"`
	ImageURL    string `json:"imageUrl" validate:"required"`
	Description string `json:"description"`
}
