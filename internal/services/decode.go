package services

import (
	"fmt"
	"time"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
)

// Store keys for listing documents.
const (
	fieldName        = "name"
	fieldSpecies     = "type"
	fieldBreed       = "breed"
	fieldAge         = "age"
	fieldLocation    = "location"
	fieldGender      = "gender"
	fieldImageURL    = "imageUrl"
	fieldDescription = "description"
	fieldOwnerID     = "ownerId"
	fieldOwnerEmail  = "ownerEmail"
	fieldCreatedAt   = "createdAt"
)

// Store keys for message documents.
const (
	fieldListingID    = "ilanId"
	fieldListingTitle = "ilanBasligi"
	fieldSenderEmail  = "gonderenMail"
	fieldRecipientID  = "aliciId"
	fieldText         = "mesaj"
	fieldSentAt       = "tarih"
	fieldRead         = "okundu"
)

// Store keys for user profile documents.
const (
	fieldProfileEmail = "kullanici_mail"
	fieldProfileDate  = "kayit_tarihi"
	fieldProfileID    = "id"
)

func decodeListing(doc db.Document) models.Listing {
	f := doc.Fields
	return models.Listing{
		ID:          doc.ID,
		Name:        stringField(f, fieldName),
		Species:     stringField(f, fieldSpecies),
		Breed:       stringField(f, fieldBreed),
		Age:         stringField(f, fieldAge),
		Location:    stringField(f, fieldLocation),
		Gender:      stringField(f, fieldGender),
		ImageURL:    stringField(f, fieldImageURL),
		Description: stringField(f, fieldDescription),
		OwnerID:     stringField(f, fieldOwnerID),
		OwnerEmail:  stringField(f, fieldOwnerEmail),
		CreatedAt:   timeField(f, fieldCreatedAt),
	}
}

func decodeMessage(doc db.Document) models.Message {
	f := doc.Fields
	return models.Message{
		ID:           doc.ID,
		ListingID:    stringField(f, fieldListingID),
		ListingTitle: stringField(f, fieldListingTitle),
		SenderEmail:  stringField(f, fieldSenderEmail),
		RecipientID:  stringField(f, fieldRecipientID),
		Text:         stringField(f, fieldText),
		SentAt:       timeField(f, fieldSentAt),
		Read:         boolField(f, fieldRead),
	}
}

// stringField reads a field as text. Missing or null values read as "", and
// non-string values (an age stored as a number) are formatted.
func stringField(f map[string]interface{}, key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func timeField(f map[string]interface{}, key string) *time.Time {
	if t, ok := f[key].(time.Time); ok {
		return &t
	}
	return nil
}

func boolField(f map[string]interface{}, key string) bool {
	b, _ := f[key].(bool)
	return b
}
