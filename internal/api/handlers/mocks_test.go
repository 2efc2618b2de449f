package handlers_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
	"yuva/server/internal/session"
	"yuva/server/internal/storage"
)

// MockSessionService implements services.ISessionService
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) SignIn(ctx context.Context, email, password string) (*session.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Identity), args.Error(1)
}

func (m *MockSessionService) SignUp(ctx context.Context, email, password, confirmPassword string) (*session.Identity, error) {
	args := m.Called(ctx, email, password, confirmPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Identity), args.Error(1)
}

// MockListingService implements services.IListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) SubmitListing(ctx context.Context, identity *session.Identity, form models.ListingForm) (string, error) {
	args := m.Called(ctx, identity, form)
	return args.String(0), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Busy() bool {
	return m.Called().Bool(0)
}

// MockAdoptionService implements services.IAdoptionService
type MockAdoptionService struct {
	mock.Mock
}

func (m *MockAdoptionService) RequestAdoption(ctx context.Context, identity *session.Identity, listing models.Listing) (string, error) {
	args := m.Called(ctx, identity, listing)
	return args.String(0), args.Error(1)
}

// MockImageStorage implements storage.IImageStorage
type MockImageStorage struct {
	mock.Mock
}

func (m *MockImageStorage) PresignImageUpload(ctx context.Context, userID, filename, contentType string) (*storage.ImageUpload, error) {
	args := m.Called(ctx, userID, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ImageUpload), args.Error(1)
}

func (m *MockImageStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockImageStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

// fakeStore answers every subscription with a fixed snapshot per collection,
// delivered synchronously. It records the queries it was asked for.
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[string]db.Snapshot
	queries   []db.Query
	active    int
	silent    bool
}

type fakeSubscription struct {
	store *fakeStore
	once  sync.Once
}

func (s *fakeSubscription) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		s.store.active--
		s.store.mu.Unlock()
	})
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: map[string]db.Snapshot{}}
}

func (f *fakeStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	panic("not used")
}

func (f *fakeStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	panic("not used")
}

func (f *fakeStore) GetByID(ctx context.Context, collection, id string) (*db.Document, error) {
	panic("not used")
}

func (f *fakeStore) Subscribe(ctx context.Context, collection string, q db.Query, onSnapshot func(db.Snapshot), onError func(error)) (db.Subscription, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.active++
	snap := f.snapshots[collection]
	silent := f.silent
	f.mu.Unlock()

	if !silent {
		onSnapshot(snap)
	}
	return &fakeSubscription{store: f}, nil
}

func (f *fakeStore) activeSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeStore) subscribedQueries() []db.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.Query(nil), f.queries...)
}

func listingDoc(id, name, species, breed, ownerID string) db.Document {
	return db.Document{ID: id, Fields: map[string]interface{}{
		"name":    name,
		"type":    species,
		"breed":   breed,
		"ownerId": ownerID,
	}}
}
