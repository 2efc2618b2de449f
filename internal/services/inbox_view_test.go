package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/session"
)

func messageDoc(id, recipient, text string, at time.Time) db.Document {
	return db.Document{ID: id, Fields: map[string]interface{}{
		"ilanId":       "L1",
		"ilanBasligi":  "Pamuk",
		"gonderenMail": "ali@example.com",
		"aliciId":      recipient,
		"mesaj":        text,
		"tarih":        at,
		"okundu":       false,
	}}
}

func TestInboxView_NoIdentity(t *testing.T) {
	store := new(MockDocumentStore)
	v := NewInboxView(store, nil, zap.NewNop())

	v.Activate(context.Background())

	st, err := v.WaitReady(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Messages)
	assert.Empty(t, store.subscriptions())
}

func TestInboxView_QueriesOwnMessagesNewestFirst(t *testing.T) {
	store := new(MockDocumentStore)
	v := NewInboxView(store, &session.Identity{ID: "OWNER", Email: "ayse@example.com"}, zap.NewNop())

	v.Activate(context.Background())
	assert.True(t, v.State().Loading)

	sub := store.lastSubscription()
	require.NotNil(t, sub)
	assert.Equal(t, db.MessagesCollection, sub.collection)
	assert.Equal(t, db.Query{
		Where:      []db.Condition{{Field: "aliciId", Value: "OWNER"}},
		OrderBy:    "tarih",
		Descending: true,
	}, sub.query)

	newer := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	sub.push(
		messageDoc("M2", "OWNER", "Pamuk isimli dostumuzu sahiplenmek istiyorum.", newer),
		messageDoc("M1", "OWNER", "ilk", older),
	)

	st := v.State()
	assert.False(t, st.Loading)
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "M2", st.Messages[0].ID)
	assert.Equal(t, "ali@example.com", st.Messages[0].SenderEmail)
	assert.Equal(t, "Pamuk", st.Messages[0].ListingTitle)
	require.NotNil(t, st.Messages[0].SentAt)
	assert.Equal(t, newer, *st.Messages[0].SentAt)
	assert.False(t, st.Messages[0].Read)
}

func TestInboxView_ErrorKeepsMessages(t *testing.T) {
	store := new(MockDocumentStore)
	v := NewInboxView(store, &session.Identity{ID: "OWNER"}, zap.NewNop())
	v.Activate(context.Background())
	sub := store.lastSubscription()
	sub.push(messageDoc("M1", "OWNER", "merhaba", time.Now()))

	sub.onError(errors.New("stream reset"))

	st := v.State()
	assert.False(t, st.Loading)
	assert.Len(t, st.Messages, 1)
}

func TestInboxView_DeactivateCancels(t *testing.T) {
	store := new(MockDocumentStore)
	v := NewInboxView(store, &session.Identity{ID: "OWNER"}, zap.NewNop())
	v.Activate(context.Background())
	sub := store.lastSubscription()

	v.Deactivate()

	assert.True(t, sub.cancelled.Load())
	sub.push(messageDoc("M1", "OWNER", "geç", time.Now()))
	assert.True(t, v.State().Loading)
}
