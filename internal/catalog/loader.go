// Package catalog loads the available places and orders them by distance
// from the user.
package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/destinations/internal/api"
	"github.com/playperu/destinations/internal/geo"
	"github.com/playperu/destinations/internal/geolocation"
	"github.com/playperu/destinations/internal/places"
	"github.com/playperu/destinations/internal/store"
)

// Source is the part of the backend the loader needs.
type Source interface {
	FetchPlaces(ctx context.Context) ([]places.Place, error)
}

type Loader struct {
	source        Source
	locator       geolocation.Locator
	locateTimeout time.Duration
	store         *store.Store
	logger        *slog.Logger

	mu     sync.Mutex
	issued uint64 // sequence number of the newest Load
}

func NewLoader(source Source, locator geolocation.Locator, locateTimeout time.Duration, st *store.Store, logger *slog.Logger) *Loader {
	return &Loader{
		source:        source,
		locator:       locator,
		locateTimeout: locateTimeout,
		store:         st,
		logger:        logger,
	}
}

// Load fetches the catalog and, once it is available, asks for the user's
// position to sort it. Failures end up in the store, never in the return path.
// When loads overlap only the newest one commits; older results are dropped.
func (l *Loader) Load(ctx context.Context) {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.store.Update(store.CatalogLoading, func(s *store.State) {
		s.CatalogLoading = true
	})
	l.mu.Unlock()

	list, err := l.source.FetchPlaces(ctx)
	if err != nil {
		l.logger.Error("fetching catalog failed", "seq", seq, "error", err)
		failure := places.Failure(places.FetchCatalogFailed, api.Reason(err))
		l.commit(seq, store.CatalogFailed, func(s *store.State) {
			s.Catalog = []places.Place{}
			s.CatalogError = failure
			s.CatalogLoading = false
		})
		return
	}

	var location *places.Coordinates
	coords, err := geolocation.LocateWithTimeout(ctx, l.locator, l.locateTimeout)
	if err != nil {
		// Keep server order rather than failing the whole view.
		l.logger.Warn("geolocation failed, catalog left unsorted",
			"kind", places.GeolocationFailed,
			"error", err,
		)
	} else {
		list = geo.SortByDistance(list, coords)
		location = &coords
	}

	committed := l.commit(seq, store.CatalogLoaded, func(s *store.State) {
		s.Catalog = list
		s.Location = location
		s.CatalogError = nil
		s.CatalogLoading = false
	})
	if committed {
		l.logger.Info("catalog loaded", "places", len(list), "sorted", location != nil)
	}
}

// commit applies fn only if seq is still the newest load.
func (l *Loader) commit(seq uint64, reason store.Reason, fn func(*store.State)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.issued {
		l.logger.Debug("discarding superseded catalog load", "seq", seq, "newest", l.issued)
		return false
	}
	l.store.Update(reason, fn)
	return true
}
