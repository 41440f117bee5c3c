// Package store holds the application state and notifies subscribers after
// every committed change.
package store

import (
	"sync"

	"github.com/playperu/destinations/internal/places"
)

// Reason names what caused a change.
type Reason string

const (
	CatalogLoading      Reason = "catalog.loading"
	CatalogLoaded       Reason = "catalog.loaded"
	CatalogFailed       Reason = "catalog.failed"
	SelectionLoading    Reason = "selection.loading"
	SelectionLoaded     Reason = "selection.loaded"
	SelectionFailed     Reason = "selection.failed"
	SelectionOptimistic Reason = "selection.optimistic"
	SelectionConfirmed  Reason = "selection.confirmed"
	SelectionRolledBack Reason = "selection.rolledback"
	PersistFailed       Reason = "selection.persist_failed"
	RemovalRequested    Reason = "removal.requested"
	RemovalCancelled    Reason = "removal.cancelled"
	ErrorDismissed      Reason = "error.dismissed"
)

type State struct {
	Catalog        []places.Place      `json:"catalog"`
	CatalogLoading bool                `json:"catalogLoading"`
	CatalogError   *places.ErrorState  `json:"catalogError"`
	Location       *places.Coordinates `json:"location"`

	Selection        []places.Place     `json:"selection"`
	SelectionLoading bool               `json:"selectionLoading"`
	SelectionError   *places.ErrorState `json:"selectionError"`
	PersistError     *places.ErrorState `json:"persistError"`

	RemovalTarget *places.Place `json:"removalTarget"`
	ConfirmOpen   bool          `json:"confirmOpen"`

	Version uint64 `json:"version"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s State) Clone() State {
	c := s
	c.Catalog = places.Clone(s.Catalog)
	c.Selection = places.Clone(s.Selection)
	if s.CatalogError != nil {
		e := *s.CatalogError
		c.CatalogError = &e
	}
	if s.Location != nil {
		l := *s.Location
		c.Location = &l
	}
	if s.SelectionError != nil {
		e := *s.SelectionError
		c.SelectionError = &e
	}
	if s.PersistError != nil {
		e := *s.PersistError
		c.PersistError = &e
	}
	if s.RemovalTarget != nil {
		p := *s.RemovalTarget
		c.RemovalTarget = &p
	}
	return c
}

// Change is published to subscribers after each Update.
type Change struct {
	Reason Reason `json:"reason"`
	State  State  `json:"state"`
}

type Store struct {
	mu    sync.RWMutex
	state State

	subMu sync.RWMutex
	subs  map[chan Change]struct{}
}

func New() *Store {
	return &Store{
		state: State{}.Clone(),
		subs:  make(map[chan Change]struct{}),
	}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update applies fn to the state, bumps the version and publishes the result.
// fn must not call back into the store.
func (s *Store) Update(reason Reason, fn func(*State)) State {
	s.mu.Lock()
	fn(&s.state)
	s.state.Version++
	snap := s.state.Clone()
	s.publish(Change{Reason: reason, State: snap})
	s.mu.Unlock()
	return snap
}

// Subscribe returns a channel that receives every change committed after the call.
func (s *Store) Subscribe() chan Change {
	ch := make(chan Change, 16)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

func (s *Store) Unsubscribe(ch chan Change) {
	s.subMu.Lock()
	delete(s.subs, ch)
	s.subMu.Unlock()
}

// publish runs under s.mu so subscribers see changes in version order.
func (s *Store) publish(c Change) {
	s.subMu.RLock()
	for ch := range s.subs {
		select {
		case ch <- c:
		default:
			// Drop if subscriber is slow; it can re-read Snapshot.
		}
	}
	s.subMu.RUnlock()
}
