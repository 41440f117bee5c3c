// Package selection manages the user's chosen places with optimistic
// updates: the store changes first, the backend is told second, and a
// failed write rolls the store back.
//
// Every mutation takes a sequence number while the manager lock is held, so
// the list it sends is always the previous list plus or minus one place. PUTs
// go out strictly in sequence order. A failure only rolls back when it
// belongs to the newest mutation; the rollback target is the last list the
// backend acknowledged. A failure superseded by a newer mutation leaves the
// newer state alone, since that mutation's PUT carries the full list anyway.
//
// Nothing is written until the stored selection has been read once: a PUT
// built from an empty local list would replace the user's saved places.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/playperu/destinations/internal/api"
	"github.com/playperu/destinations/internal/places"
	"github.com/playperu/destinations/internal/store"
)

var (
	ErrNotSelected      = errors.New("place not selected")
	ErrNoRemovalPending = errors.New("no removal pending")
	ErrNotLoaded        = errors.New("selection not loaded")
)

// Backend persists the selection.
type Backend interface {
	FetchUserPlaces(ctx context.Context) ([]places.Place, error)
	UpdateUserPlaces(ctx context.Context, list []places.Place) (string, error)
}

type Manager struct {
	backend Backend
	store   *store.Store
	logger  *slog.Logger

	mu       sync.Mutex
	turn     *sync.Cond
	current  []places.Place
	acked    []places.Place
	ackedSeq uint64
	issued   uint64 // last sequence number handed out
	written  uint64 // last sequence number whose PUT completed
	target   *places.Place
	loaded   bool
}

func NewManager(backend Backend, st *store.Store, logger *slog.Logger) *Manager {
	m := &Manager{
		backend: backend,
		store:   st,
		logger:  logger,
		current: []places.Place{},
		acked:   []places.Place{},
	}
	m.turn = sync.NewCond(&m.mu)
	return m
}

// Selection returns a copy of the current (possibly unconfirmed) list.
func (m *Manager) Selection() []places.Place {
	m.mu.Lock()
	defer m.mu.Unlock()
	return places.Clone(m.current)
}

// Load replaces the selection with the backend's stored list. Until one
// Load succeeds, Add and Remove fail with ErrNotLoaded.
func (m *Manager) Load(ctx context.Context) {
	m.store.Update(store.SelectionLoading, func(s *store.State) {
		s.SelectionLoading = true
	})

	list, err := m.backend.FetchUserPlaces(ctx)
	if err != nil {
		m.logger.Error("fetching user places failed", "error", err)
		failure := places.Failure(places.FetchSelectionFailed, api.Reason(err))
		m.store.Update(store.SelectionFailed, func(s *store.State) {
			s.SelectionError = failure
			s.SelectionLoading = false
		})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = places.Clone(list)
	m.acked = places.Clone(list)
	// A reload after writes must not let an older PUT overwrite what we just read.
	m.ackedSeq = m.issued
	m.loaded = true

	m.logger.Info("user places loaded", "places", len(list))
	m.store.Update(store.SelectionLoaded, func(s *store.State) {
		s.Selection = places.Clone(list)
		s.SelectionError = nil
		s.SelectionLoading = false
	})
}

// Add puts p at the front of the selection and persists the new list.
// It reports false without contacting the backend if p is already selected.
func (m *Manager) Add(ctx context.Context, p places.Place) (bool, error) {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return false, ErrNotLoaded
	}
	if places.Contains(m.current, p.ID) {
		m.mu.Unlock()
		return false, nil
	}

	next := make([]places.Place, 0, len(m.current)+1)
	next = append(next, p)
	next = append(next, m.current...)
	seq := m.apply(next)
	m.mu.Unlock()

	m.logger.Debug("place added optimistically", "id", p.ID, "seq", seq)
	return true, m.persist(ctx, seq, next, nil)
}

// RequestRemoval remembers p as the removal target and opens the
// confirmation dialog.
func (m *Manager) RequestRemoval(p places.Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !places.Contains(m.current, p.ID) {
		return ErrNotSelected
	}

	target := p
	m.target = &target
	m.store.Update(store.RemovalRequested, func(s *store.State) {
		s.RemovalTarget = &target
		s.ConfirmOpen = true
	})
	return nil
}

// CancelRemoval closes the confirmation dialog. The target stays remembered
// until another removal is requested or one succeeds.
func (m *Manager) CancelRemoval() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Update(store.RemovalCancelled, func(s *store.State) {
		s.ConfirmOpen = false
	})
}

// ConfirmRemoval removes the pending removal target.
func (m *Manager) ConfirmRemoval(ctx context.Context) error {
	m.mu.Lock()
	target := m.target
	m.mu.Unlock()

	if target == nil {
		return ErrNoRemovalPending
	}
	return m.Remove(ctx, target.ID)
}

// Remove drops id from the selection and persists the new list. On success
// the confirmation dialog for id is closed.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return ErrNotLoaded
	}
	if !places.Contains(m.current, id) {
		m.mu.Unlock()
		return ErrNotSelected
	}

	next := make([]places.Place, 0, len(m.current)-1)
	for _, p := range m.current {
		if p.ID != id {
			next = append(next, p)
		}
	}
	seq := m.apply(next)
	m.mu.Unlock()

	m.logger.Debug("place removed optimistically", "id", id, "seq", seq)
	return m.persist(ctx, seq, next, func(s *store.State) {
		if m.target != nil && m.target.ID == id {
			m.target = nil
			s.RemovalTarget = nil
			s.ConfirmOpen = false
		}
	})
}

// DismissError clears the persist error without retrying anything.
func (m *Manager) DismissError() {
	m.store.Update(store.ErrorDismissed, func(s *store.State) {
		s.PersistError = nil
	})
}

// apply commits next as the optimistic selection and returns its sequence
// number. m.mu must be held.
func (m *Manager) apply(next []places.Place) uint64 {
	m.issued++
	m.current = places.Clone(next)
	m.store.Update(store.SelectionOptimistic, func(s *store.State) {
		s.Selection = places.Clone(next)
	})
	return m.issued
}

// persist writes list once every earlier mutation's PUT has completed, then
// confirms or rolls back. onSuccess runs inside the store update, with m.mu held.
func (m *Manager) persist(ctx context.Context, seq uint64, list []places.Place, onSuccess func(*store.State)) error {
	m.mu.Lock()
	for m.written+1 != seq {
		m.turn.Wait()
	}
	m.mu.Unlock()

	msg, err := m.backend.UpdateUserPlaces(ctx, list)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		m.written = seq
		m.turn.Broadcast()
	}()

	if err != nil {
		return m.fail(seq, err)
	}

	if seq > m.ackedSeq {
		m.acked = places.Clone(list)
		m.ackedSeq = seq
	}

	m.logger.Info("user places updated", "seq", seq, "places", len(list), "message", msg)
	m.store.Update(store.SelectionConfirmed, func(s *store.State) {
		s.PersistError = nil
		if onSuccess != nil {
			onSuccess(s)
		}
	})
	return nil
}

// fail records a failed write. m.mu must be held.
func (m *Manager) fail(seq uint64, err error) error {
	failure := places.Failure(places.PersistSelectionFailed, api.Reason(err))

	if seq != m.issued {
		m.logger.Warn("superseded selection update failed, newer update pending",
			"seq", seq,
			"newest", m.issued,
			"error", err,
		)
		m.store.Update(store.PersistFailed, func(s *store.State) {
			s.PersistError = failure
		})
		return fmt.Errorf("persisting selection: %w", err)
	}

	m.logger.Error("selection update failed, rolling back",
		"seq", seq,
		"restored", len(m.acked),
		"error", err,
	)
	m.current = places.Clone(m.acked)
	restored := places.Clone(m.acked)
	m.store.Update(store.SelectionRolledBack, func(s *store.State) {
		s.Selection = restored
		s.PersistError = failure
	})
	return fmt.Errorf("persisting selection: %w", err)
}
