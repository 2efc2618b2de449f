package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
	"yuva/server/internal/session"
)

// MockDocumentStore mocks the write and read calls with testify and records
// subscriptions so tests can push snapshots and errors by hand.
type MockDocumentStore struct {
	mock.Mock

	mu           sync.Mutex
	subs         []*fakeSubscription
	subscribeErr error
}

type fakeSubscription struct {
	collection string
	query      db.Query
	onSnapshot func(db.Snapshot)
	onError    func(error)
	cancelled  atomic.Bool
}

func (s *fakeSubscription) Cancel() { s.cancelled.Store(true) }

func (s *fakeSubscription) push(docs ...db.Document) { s.onSnapshot(db.Snapshot(docs)) }

func (m *MockDocumentStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	args := m.Called(ctx, collection, fields)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

func (m *MockDocumentStore) GetByID(ctx context.Context, collection, id string) (*db.Document, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Document), args.Error(1)
}

func (m *MockDocumentStore) Subscribe(ctx context.Context, collection string, q db.Query, onSnapshot func(db.Snapshot), onError func(error)) (db.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	s := &fakeSubscription{collection: collection, query: q, onSnapshot: onSnapshot, onError: onError}
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *MockDocumentStore) subscriptions() []*fakeSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*fakeSubscription(nil), m.subs...)
}

func (m *MockDocumentStore) lastSubscription() *fakeSubscription {
	subs := m.subscriptions()
	if len(subs) == 0 {
		return nil
	}
	return subs[len(subs)-1]
}

type MockAuthProvider struct {
	mock.Mock
}

func (m *MockAuthProvider) SignIn(ctx context.Context, email, password string) (*session.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Identity), args.Error(1)
}

func (m *MockAuthProvider) SignUp(ctx context.Context, email, password string) (*session.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Identity), args.Error(1)
}

type MockAdoptionNotifier struct {
	mock.Mock
}

func (m *MockAdoptionNotifier) EnqueueAdoptionNotice(ctx context.Context, notice models.AdoptionNotice) error {
	return m.Called(ctx, notice).Error(0)
}

type MockListingCache struct {
	mock.Mock
}

func (m *MockListingCache) Get(ctx context.Context, id string) (*models.Listing, bool) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.Listing), args.Bool(1)
}

func (m *MockListingCache) Put(ctx context.Context, l *models.Listing) {
	m.Called(ctx, l)
}

func listingDoc(id, name, species, breed string) db.Document {
	return db.Document{ID: id, Fields: map[string]interface{}{
		"name":  name,
		"type":  species,
		"breed": breed,
	}}
}

type MockImageNormalizer struct {
	mock.Mock
}

func (m *MockImageNormalizer) EnqueueImageNormalize(ctx context.Context, listingID, imageURL string) error {
	return m.Called(ctx, listingID, imageURL).Error(0)
}
