package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
)

var errViewInactive = errors.New("view is not active")

// ListingsState is what a browse screen renders.
type ListingsState struct {
	Loading  bool             `json:"loading"`
	Query    string           `json:"query"`
	All      []models.Listing `json:"-"`
	Filtered []models.Listing `json:"listings"`
}

// ListingsView keeps the full set of listings current through one live
// subscription and derives the filtered set from the search query.
//
// A subscription failure is not surfaced as an error state: it is logged and
// the view shows an empty, loaded list.
type ListingsView struct {
	store  db.DocumentStore
	logger *zap.Logger

	mu       sync.Mutex
	slot     subscriptionSlot
	loading  bool
	query    string
	all      []models.Listing
	filtered []models.Listing
	onChange func(ListingsState)
}

func NewListingsView(store db.DocumentStore, logger *zap.Logger) *ListingsView {
	return &ListingsView{
		store:    store,
		logger:   logger,
		loading:  true,
		all:      []models.Listing{},
		filtered: []models.Listing{},
	}
}

// OnChange registers fn to receive every new state. fn runs with the view
// locked, in state order, and must not call back into the view.
func (v *ListingsView) OnChange(fn func(ListingsState)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Activate opens the listings subscription, replacing any previous one.
func (v *ListingsView) Activate(ctx context.Context) {
	v.mu.Lock()
	gen, prev := v.slot.begin()
	v.loading = true
	v.notifyLocked()
	v.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}

	sub, err := v.store.Subscribe(ctx, db.ListingsCollection, db.Query{},
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

// Deactivate releases the subscription. Later store callbacks are ignored.
func (v *ListingsView) Deactivate() {
	v.mu.Lock()
	sub := v.slot.end()
	v.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// SetQuery changes the search text and recomputes the filtered set.
func (v *ListingsView) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
	v.filtered = FilterListings(v.all, q)
	v.notifyLocked()
}

// State returns a copy of the current state.
func (v *ListingsView) State() ListingsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

// WaitReady blocks until the current activation has received its first
// snapshot or failed, then returns the state.
func (v *ListingsView) WaitReady(ctx context.Context) (ListingsState, error) {
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

func (v *ListingsView) applySnapshot(gen uint64, snap db.Snapshot) {
	listings := make([]models.Listing, 0, len(snap))
	for _, doc := range snap {
		listings = append(listings, decodeListing(doc))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.slot.current(gen) {
		return
	}
	v.all = listings
	v.filtered = FilterListings(listings, v.query)
	v.loading = false
	v.slot.markReady()
	v.notifyLocked()
}

func (v *ListingsView) applyError(gen uint64, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.slot.current(gen) {
		return
	}
	v.logger.Error("Listings subscription failed", zap.Error(err))
	v.all = []models.Listing{}
	v.filtered = []models.Listing{}
	v.loading = false
	v.slot.markReady()
	v.notifyLocked()
}

func (v *ListingsView) stateLocked() ListingsState {
	return ListingsState{
		Loading:  v.loading,
		Query:    v.query,
		All:      append(make([]models.Listing, 0, len(v.all)), v.all...),
		Filtered: append(make([]models.Listing, 0, len(v.filtered)), v.filtered...),
	}
}

func (v *ListingsView) notifyLocked() {
	if v.onChange != nil {
		v.onChange(v.stateLocked())
	}
}
