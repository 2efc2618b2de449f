package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
	"yuva/server/internal/session"
)

// InboxState is what the inbox screen renders.
type InboxState struct {
	Loading  bool             `json:"loading"`
	Messages []models.Message `json:"messages"`
}

// InboxView keeps the signed-in user's adoption requests current, newest first.
// The identity is fixed at construction. Without one the view never
// subscribes and reports an empty, loaded inbox.
//
// On a subscription failure the last delivered messages are kept.
type InboxView struct {
	store    db.DocumentStore
	identity *session.Identity
	logger   *zap.Logger

	mu       sync.Mutex
	slot     subscriptionSlot
	loading  bool
	messages []models.Message
	onChange func(InboxState)
}

func NewInboxView(store db.DocumentStore, identity *session.Identity, logger *zap.Logger) *InboxView {
	return &InboxView{
		store:    store,
		identity: identity,
		logger:   logger,
		loading:  true,
		messages: []models.Message{},
	}
}

// OnChange registers fn to receive every new state. fn runs with the view
// locked and must not call back into the view.
func (v *InboxView) OnChange(fn func(InboxState)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// InboxQuery selects the messages addressed to recipientID, newest first.
func InboxQuery(recipientID string) db.Query {
	return db.Query{
		Where:      []db.Condition{{Field: fieldRecipientID, Value: recipientID}},
		OrderBy:    fieldSentAt,
		Descending: true,
	}
}

// Activate opens the inbox subscription, replacing any previous one.
func (v *InboxView) Activate(ctx context.Context) {
	v.mu.Lock()
	gen, prev := v.slot.begin()
	if v.identity == nil {
		v.loading = false
		v.messages = []models.Message{}
		v.slot.markReady()
	} else {
		v.loading = true
	}
	v.notifyLocked()
	v.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	if v.identity == nil {
		return
	}

	sub, err := v.store.Subscribe(ctx, db.MessagesCollection, InboxQuery(v.identity.ID),
		func(snap db.Snapshot) { v.applySnapshot(gen, snap) },
		func(err error) { v.applyError(gen, err) },
	)
	if err != nil {
		v.applyError(gen, err)
		return
	}

	v.mu.Lock()
	attached := v.slot.attach(gen, sub)
	v.mu.Unlock()
	if !attached {
		sub.Cancel()
	}
}

// Deactivate releases the subscription.
func (v *InboxView) Deactivate() {
	v.mu.Lock()
	sub := v.slot.end()
	v.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// State returns a copy of the current state.
func (v *InboxView) State() InboxState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

// WaitReady blocks until the current activation is loaded, then returns the state.
func (v *InboxView) WaitReady(ctx context.Context) (InboxState, error) {
	v.mu.Lock()
	ready := v.slot.ready
	v.mu.Unlock()
	if ready == nil {
		return v.State(), errViewInactive
	}
	select {
	case <-ready:
		return v.State(), nil
	case <-ctx.Done():
		return v.State(), ctx.Err()
	}
}

func (v *InboxView) applySnapshot(gen uint64, snap db.Snapshot) {
	messages := make([]models.Message, 0, len(snap))
	for _, doc := range snap {
		messages = append(messages, decodeMessage(doc))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.slot.current(gen) {
		return
	}
	v.messages = messages
	v.loading = false
	v.slot.markReady()
	v.notifyLocked()
}

func (v *InboxView) applyError(gen uint64, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.slot.current(gen) {
		return
	}
	v.logger.Error("Inbox subscription failed", zap.String("user_id", v.identity.ID), zap.Error(err))
	v.loading = false
	v.slot.markReady()
	v.notifyLocked()
}

func (v *InboxView) stateLocked() InboxState {
	return InboxState{
		Loading:  v.loading,
		Messages: append(make([]models.Message, 0, len(v.messages)), v.messages...),
	}
}

func (v *InboxView) notifyLocked() {
	if v.onChange != nil {
		v.onChange(v.stateLocked())
	}
}
