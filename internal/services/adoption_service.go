package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
	"yuva/server/internal/session"
)

// IAdoptionNotifier queues the owner notification for a stored request.
type IAdoptionNotifier interface {
	EnqueueAdoptionNotice(ctx context.Context, notice models.AdoptionNotice) error
}

// IAdoptionService sends adoption requests to listing owners.
type IAdoptionService interface {
	// RequestAdoption stores one message addressed to the listing owner and
	// returns its id. It fails with ErrAuthRequired without an identity and
	// with ErrSelfRequest when identity owns the listing; neither writes.
	RequestAdoption(ctx context.Context, identity *session.Identity, listing models.Listing) (string, error)
}

type adoptionService struct {
	store    db.DocumentStore
	notifier IAdoptionNotifier
	logger   *zap.Logger
}

// NewAdoptionService creates a new adoption service. notifier may be nil.
func NewAdoptionService(store db.DocumentStore, notifier IAdoptionNotifier, logger *zap.Logger) IAdoptionService {
	return &adoptionService{store: store, notifier: notifier, logger: logger}
}

// AdoptionMessageText is the request text sent for a listing name.
func AdoptionMessageText(listingName string) string {
	return fmt.Sprintf(adoptionMessageTemplate, listingName)
}

func (s *adoptionService) RequestAdoption(ctx context.Context, identity *session.Identity, listing models.Listing) (string, error) {
	if identity == nil {
		return "", ErrAuthRequired
	}
	if identity.ID == listing.OwnerID {
		return "", ErrSelfRequest
	}

	text := AdoptionMessageText(listing.Name)
	id, err := s.store.Create(ctx, db.MessagesCollection, map[string]interface{}{
		fieldListingID:    listing.ID,
		fieldListingTitle: listing.Name,
		fieldSenderEmail:  identity.Email,
		fieldRecipientID:  listing.OwnerID,
		fieldText:         text,
		fieldSentAt:       db.ServerTimestamp,
		fieldRead:         false,
	})
	if err != nil {
		s.logger.Error("Failed to store adoption request", zap.String("listing_id", listing.ID), zap.Error(err))
		return "", &RemoteError{Op: "send adoption request", Err: err}
	}

	if s.notifier != nil && listing.OwnerEmail != "" {
		notice := models.AdoptionNotice{
			MessageID:    id,
			ListingID:    listing.ID,
			ListingTitle: listing.Name,
			OwnerEmail:   listing.OwnerEmail,
			SenderEmail:  identity.Email,
			Text:         text,
		}
		if err := s.notifier.EnqueueAdoptionNotice(ctx, notice); err != nil {
			s.logger.Warn("Failed to queue adoption notice", zap.String("message_id", id), zap.Error(err))
		}
	}

	return id, nil
}
