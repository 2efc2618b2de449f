package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
	"yuva/server/internal/session"
)

// IListingCache is the read-through cache used by FindListingByID.
type IListingCache interface {
	Get(ctx context.Context, id string) (*models.Listing, bool)
	Put(ctx context.Context, l *models.Listing)
}

// IImageNormalizer queues post-processing of a newly published listing photo.
type IImageNormalizer interface {
	EnqueueImageNormalize(ctx context.Context, listingID, imageURL string) error
}

// IListingService publishes and looks up listings.
type IListingService interface {
	// SubmitListing validates form and stores it as a new listing owned by
	// identity. identity may be nil; the listing is then stored without owner.
	SubmitListing(ctx context.Context, identity *session.Identity, form models.ListingForm) (string, error)
	// FindListingByID returns ErrListingNotFound when no listing has the id.
	FindListingByID(ctx context.Context, id string) (*models.Listing, error)
	// Busy reports whether a submission is in flight.
	Busy() bool
}

type listingService struct {
	store    db.DocumentStore
	cache    IListingCache
	images   IImageNormalizer
	logger   *zap.Logger
	validate *validator.Validate
	inFlight atomic.Int32
}

// NewListingService creates a new listing service. cache and images may be nil.
func NewListingService(store db.DocumentStore, cache IListingCache, images IImageNormalizer, logger *zap.Logger) IListingService {
	return &listingService{
		store:    store,
		cache:    cache,
		images:   images,
		logger:   logger,
		validate: newFormValidator(),
	}
}

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateForm returns a *ValidationError naming the missing required
// fields, or nil when the form is complete.
func (s *listingService) validateForm(form models.ListingForm) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, fe.Field())
	}
	return &ValidationError{Message: MsgListingFieldsMissing, Missing: missing}
}

func (s *listingService) SubmitListing(ctx context.Context, identity *session.Identity, form models.ListingForm) (string, error) {
	if err := s.validateForm(form); err != nil {
		return "", err
	}

	fields := map[string]interface{}{
		fieldName:        form.Name,
		fieldSpecies:     form.Species,
		fieldBreed:       form.Breed,
		fieldAge:         form.Age,
		fieldLocation:    form.Location,
		fieldGender:      form.Gender,
		fieldImageURL:    form.ImageURL,
		fieldDescription: form.Description,
		fieldCreatedAt:   db.ServerTimestamp,
	}
	if identity != nil {
		fields[fieldOwnerID] = identity.ID
		fields[fieldOwnerEmail] = identity.Email
	}

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	id, err := s.store.Create(ctx, db.ListingsCollection, fields)
	if err != nil {
		s.logger.Error("Failed to publish listing", zap.Error(err))
		return "", &RemoteError{Op: "publish listing", Err: err}
	}

	s.logger.Info("Listing published", zap.String("listing_id", id), zap.Bool("has_owner", identity != nil))

	if s.images != nil {
		if err := s.images.EnqueueImageNormalize(ctx, id, form.ImageURL); err != nil {
			s.logger.Warn("Failed to queue image normalization", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return id, nil
}

func (s *listingService) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	if s.cache != nil {
		if l, ok := s.cache.Get(ctx, id); ok {
			return l, nil
		}
	}

	doc, err := s.store.GetByID(ctx, db.ListingsCollection, id)
	if err != nil {
		return nil, &RemoteError{Op: "get listing", Err: err}
	}
	if doc == nil {
		return nil, ErrListingNotFound
	}

	l := decodeListing(*doc)
	if s.cache != nil {
		s.cache.Put(ctx, &l)
	}
	return &l, nil
}

func (s *listingService) Busy() bool {
	return s.inFlight.Load() > 0
}
