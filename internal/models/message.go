package models

import "time"

// Message is an adoption request delivered to a listing owner's inbox.
type Message struct {
	ID           string     `json:"id"`
	ListingID    string     `json:"listing_id"`
	ListingTitle string     `json:"listing_title"`
	SenderEmail  string     `json:"sender_email"`
	RecipientID  string     `json:"recipient_id"`
	Text         string     `json:"text"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	Read         bool       `json:"read"`
}

// AdoptionNotice is queued for the background worker after a request is stored,
// so the owner also gets an email.
type AdoptionNotice struct {
	MessageID    string `json:"message_id"`
	ListingID    string `json:"listing_id"`
	ListingTitle string `json:"listing_title"`
	OwnerEmail   string `json:"owner_email"`
	SenderEmail  string `json:"sender_email"`
	Text         string `json:"text"`
}
